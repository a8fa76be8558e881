package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/poelog/poelog-go/internal/config"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	verbose    bool
	configFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "poelog",
	Short: "Path of Exile zone monitor and loot tracker",
	Long: `poelog watches the Path of Exile client log (Client.txt) for zone changes.

It can print zone changes as they happen, replay them from an old log,
and track farming sessions: map runs, drops and chaos per hour.
Zone events are output as JSON Lines by default for easy processing
with other tools.

This is an unofficial tool and is not affiliated with Grinding Gear Games.`,
	SilenceUsage: true, // Don't show usage on error
}

func init() {
	// Global flags (inherited by all subcommands)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (default $XDG_CONFIG_HOME/poelog/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(zoneTypesCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "poelog %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// newLogger returns a debug-level stderr logger with --verbose, otherwise
// one that only reports warnings.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and environment, with the command's
// flags taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
