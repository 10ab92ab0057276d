package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	logLevel  string
	logFormat string
)

// NewRootCommand builds the full command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "server",
		Short: "Calendify server - event calendar backend",
		Long: `Calendify server stores calendar events in PostgreSQL and serves them over a
small JSON API at /api/events. Every create, update and delete is recorded as a
notification, and the ten most recent notifications are available as an
activity feed.

Running the binary without a subcommand is the same as "server serve".`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	serve := newServeCommand()
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		newMigrateCommand(),
		newEventsCommand(),
		newHealthcheckCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
