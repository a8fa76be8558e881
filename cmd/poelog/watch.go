package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/poelog/poelog-go/pkg/poelog"
)

var (
	// watch flags
	watchFormat       string
	watchIncludeTypes []string
	watchExcludeTypes []string
	watchRaw          bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor the client log and output zone changes",
	Long: `Monitor the Path of Exile client log in real-time and output zone changes.

Only content written after the command starts is reported. Events are
output as JSON Lines by default (one JSON object per line), which makes it
easy to process with tools like jq.

Examples:
  # Monitor with default settings (auto-detect Client.txt)
  poelog watch

  # Specify the log file
  poelog watch --log-path "C:\Program Files (x86)\Grinding Gear Games\Path of Exile\logs\Client.txt"

  # Output only map and hideout entries
  poelog watch --include-types map,hideout

  # Human-readable output
  poelog watch --format pretty

  # Use filesystem notifications instead of polling
  poelog watch --follow notify

  # Pipe to jq for filtering
  poelog watch | jq 'select(.zone_type == "map")'`,
	RunE: runWatch,
}

func init() {
	addMonitorFlags(watchCmd)
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "jsonl",
		"Output format: jsonl, pretty, yaml")
	watchCmd.Flags().StringSliceVar(&watchIncludeTypes, "include-types", nil,
		"Zone types to include (comma-separated: map,hideout,town,campaign,unknown)")
	watchCmd.Flags().StringSliceVar(&watchExcludeTypes, "exclude-types", nil,
		"Zone types to exclude (comma-separated)")
	watchCmd.Flags().BoolVar(&watchRaw, "raw", false,
		"Include raw log lines in output")

	registerZoneTypeCompletion(watchCmd, "include-types")
	registerZoneTypeCompletion(watchCmd, "exclude-types")
	_ = watchCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

// addMonitorFlags registers the flags that override monitor settings from
// the config file. Their values are read through config.Load.
func addMonitorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("log-path", "l", "",
		"Client.txt path (auto-detected if not specified)")
	cmd.Flags().Duration("poll-interval", poelog.DefaultPollInterval,
		"How often to check the log for new lines")
	cmd.Flags().Duration("error-backoff", poelog.DefaultErrorBackoff,
		"Initial wait after a failed read")
	cmd.Flags().String("follow", string(poelog.FollowPoll),
		"How to follow the log: poll, notify")
	_ = cmd.RegisterFlagCompletionFunc("follow", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(poelog.FollowPoll), string(poelog.FollowNotify)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Validate format
	if !ValidFormats[watchFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty, yaml", watchFormat)
	}

	includes, excludes, err := normalizeFilter(watchIncludeTypes, watchExcludeTypes)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := cfg.MonitorOptions()
	opts = append(opts,
		poelog.WithFilter(includes, excludes),
		poelog.WithIncludeRawLine(watchRaw),
		poelog.WithLogger(newLogger(os.Stderr)),
	)

	monitor, err := poelog.NewMonitor(opts...)
	if err != nil {
		return err
	}

	events := make(chan poelog.ChangeEvent, 16)
	monitor.OnZoneChange(forwardEvents(ctx, events))
	monitor.Start()
	defer monitor.Stop()

	if verbose {
		fmt.Fprintf(os.Stderr, "watching %s\n", monitor.Path())
	}

	// Output loop
	for {
		select {
		case ev := <-events:
			if err := OutputEvent(watchFormat, ev, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// forwardEvents returns a monitor callback that hands events to ch until
// ctx is done.
func forwardEvents(ctx context.Context, ch chan<- poelog.ChangeEvent) poelog.ZoneChangeFunc {
	return func(ev poelog.ChangeEvent) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}
}
