// Package main provides the CLI entrypoint for wmkit.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wmkit/wmkit/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	globalOpts struct {
		verbose bool
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wmkit",
	Short: "Control wmkitd notifications, keyboard layouts and window tiling",
	Long: `wmkit is the command line companion of the wmkitd daemon.

It sends desktop notifications, drives the daemon's suspension and
dismissal controls, switches keyboard layouts and tiles windows over
the org.wmkit.Control1 session bus interface.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// withClient connects to the session bus, runs fn and closes the connection.
func withClient(fn func(*dbus.Client) error) error {
	client, err := dbus.NewClient()
	if err != nil {
		return fmt.Errorf("failed to connect to the session bus: %w", err)
	}
	defer func() { _ = client.Close() }()
	return fn(client)
}
