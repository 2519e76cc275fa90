// Retools is a reverse-engineering aid for CAN-style broadcast buses.
//
// It attaches to one or more frame sources (a NATS subject, a WebSocket
// gateway or a candump log), classifies every frame into a composite key
// made of its origin, its identifier and any payload bytes selected for
// that identifier, and keeps per-key occurrence statistics that can be
// listed while the bus runs.
//
// Usage:
//
//	retools [command] [flags]
//
// See 'retools --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/retools/internal/config"
	"github.com/muurk/retools/internal/logging"
	"github.com/muurk/retools/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

// cfg is loaded before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "retools",
	Short: "CAN bus reverse-engineering statistics",
	Long: `Observe every frame on a CAN-style bus, group frames by origin, identifier
and selected payload bytes, and list how often each group occurs.

Frames come from NATS subjects, WebSocket gateways or candump log files.
The statistics engine is controlled from an interactive console, a live
terminal view or an HTTP API.`,
	Version:       version.Get().Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		level := logLevel
		if level == "" {
			level = cfg.LogLevel
		}
		return logging.Initialize(level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/retools/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "retools %s\n", version.Full())
	},
}
