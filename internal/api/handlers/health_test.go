package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDatabase struct {
	pingErr    error
	version    int64
	dirty      bool
	versionErr error
}

func (s stubDatabase) Ping(context.Context) error { return s.pingErr }

func (s stubDatabase) SchemaVersion(context.Context) (int64, bool, error) {
	return s.version, s.dirty, s.versionErr
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		db         Database
		wantCode   int
		wantStatus string
		failing    string
	}{
		{"healthy", stubDatabase{version: 1}, http.StatusOK, "healthy", ""},
		{"ping fails", stubDatabase{pingErr: errors.New("connection refused"), versionErr: errors.New("connection refused")}, http.StatusServiceUnavailable, "unhealthy", "database"},
		{"not migrated", stubDatabase{versionErr: errors.New(`relation "schema_migrations" does not exist`)}, http.StatusServiceUnavailable, "unhealthy", "migrations"},
		{"dirty", stubDatabase{version: 1, dirty: true}, http.StatusServiceUnavailable, "unhealthy", "migrations"},
		{"no database", nil, http.StatusServiceUnavailable, "unhealthy", "database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHealthChecker(tt.db, "0.1.0", "abc123")
			rec := httptest.NewRecorder()
			checker.Readyz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var report HealthCheck
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, "0.1.0", report.Version)
			assert.Equal(t, "abc123", report.GitCommit)
			assert.NotEmpty(t, report.Timestamp)
			if tt.failing != "" {
				assert.Equal(t, "fail", report.Checks[tt.failing].Status)
			}
		})
	}
}

func TestReadyzDuringShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx)
	NewHealthChecker(stubDatabase{version: 1}, "dev", "none").Readyz().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"shutting_down"}`, rec.Body.String())
}
