package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	Tracing     TracingConfig
	Jobs        JobsConfig
	Environment string
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr is the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	AutoMigrate    bool
	MigrationsPath string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

// JobsConfig controls the background job runner. Notifications older than
// NotificationRetention are pruned every PruneInterval; the newest page is
// always kept.
type JobsConfig struct {
	Enabled               bool
	NotificationRetention time.Duration
	PruneInterval         time.Duration
}

const defaultMigrationsPath = "internal/storage/postgres/migrations"

// Load reads configuration from the environment. Values from a .env file in
// the working directory are applied first when the file exists; variables
// already set in the environment win.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 10),
			AutoMigrate:    getEnvBool("DATABASE_AUTO_MIGRATE", false),
			MigrationsPath: getEnv("MIGRATIONS_PATH", defaultMigrationsPath),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     strings.ToLower(getEnv("TRACING_EXPORTER", "stdout")),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "calendify-server"),
			OTLPEndpoint: getEnv("TRACING_OTLP_ENDPOINT", "localhost:4317"),
		},
		Jobs: JobsConfig{
			Enabled:               getEnvBool("JOBS_ENABLED", false),
			NotificationRetention: getEnvDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
			PruneInterval:         getEnvDuration("NOTIFICATION_PRUNE_INTERVAL", 24*time.Hour),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	rate, err := getEnvFloat("TRACING_SAMPLE_RATE", 1.0)
	if err != nil {
		return Config{}, err
	}
	cfg.Tracing.SampleRate = rate

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Database.MaxConnections <= 0 {
		return Config{}, fmt.Errorf("DATABASE_MAX_CONNECTIONS must be positive, got %d", cfg.Database.MaxConnections)
	}
	if rate < 0 || rate > 1 {
		return Config{}, fmt.Errorf("TRACING_SAMPLE_RATE must be between 0.0 and 1.0, got %g", rate)
	}
	switch cfg.Tracing.Exporter {
	case "stdout", "otlp", "none":
	default:
		return Config{}, fmt.Errorf("TRACING_EXPORTER must be one of stdout, otlp, none; got %q", cfg.Tracing.Exporter)
	}
	if cfg.Jobs.NotificationRetention <= 0 || cfg.Jobs.PruneInterval <= 0 {
		return Config{}, fmt.Errorf("NOTIFICATION_RETENTION and NOTIFICATION_PRUNE_INTERVAL must be positive")
	}
	return cfg, nil
}

// LoadClient reads only what the CLI client commands need and never requires
// DATABASE_URL.
func LoadClient() (LoggingConfig, error) {
	if err := loadDotEnv(".env"); err != nil {
		return LoggingConfig{}, err
	}
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "console"),
	}, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
