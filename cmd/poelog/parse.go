package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/poelog/poelog-go/internal/logfinder"
	"github.com/poelog/poelog-go/pkg/poelog"
)

var (
	// parse flags
	parseIncludeTypes []string
	parseExcludeTypes []string
	parseSince        string
	parseUntil        string
	parseFormat       string
	parseRaw          bool
	parseNoDedup      bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a client log (batch mode)",
	Long: `Parse a Path of Exile client log and output every zone change in it.

Unlike 'watch', this command reads the whole file from the start and exits
at the end. Consecutive entries into the same zone are reported once unless
--no-dedup is given.

Examples:
  # Parse the auto-detected Client.txt
  poelog parse

  # Parse a specific file
  poelog parse ~/backup/Client.txt

  # Filter by time range (RFC3339, or local time as written in the log)
  poelog parse --since "2024-01-15T12:00:00Z" --until "2024-01-16T00:00:00Z"
  poelog parse --since "2024/01/15 20:00:00" --until 2024-01-16

  # Only map entries, human-readable
  poelog parse --include-types map --format pretty

  # Pipe to jq for filtering
  poelog parse | jq 'select(.area_level >= 83)'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringP("log-path", "l", "",
		"Client.txt path (auto-detected if not specified)")
	parseCmd.Flags().StringSliceVar(&parseIncludeTypes, "include-types", nil,
		"Zone types to include (comma-separated: map,hideout,town,campaign,unknown)")
	parseCmd.Flags().StringSliceVar(&parseExcludeTypes, "exclude-types", nil,
		"Zone types to exclude (comma-separated)")
	parseCmd.Flags().StringVar(&parseSince, "since", "",
		"Only events at/after this time (RFC3339, log format or YYYY-MM-DD)")
	parseCmd.Flags().StringVar(&parseUntil, "until", "",
		"Only events before this time")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "jsonl",
		"Output format: jsonl, pretty, yaml")
	parseCmd.Flags().BoolVar(&parseRaw, "raw", false,
		"Include raw log lines in output")
	parseCmd.Flags().BoolVar(&parseNoDedup, "no-dedup", false,
		"Report repeated entries into the same zone")

	registerZoneTypeCompletion(parseCmd, "include-types")
	registerZoneTypeCompletion(parseCmd, "exclude-types")
	_ = parseCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runParse(cmd *cobra.Command, args []string) error {
	// Validate format
	if !ValidFormats[parseFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty, yaml", parseFormat)
	}

	includes, excludes, err := normalizeFilter(parseIncludeTypes, parseExcludeTypes)
	if err != nil {
		return err
	}

	// Parse time range
	sinceTime, untilTime, err := parseTimeRange(parseSince, parseUntil)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	explicit := cfg.LogPath
	if len(args) > 0 {
		explicit = args[0]
	}
	path, exists := logfinder.FindLogFile(explicit)
	if !exists {
		return fmt.Errorf("client log not found: %s", path)
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []poelog.ParseOption{
		poelog.WithParseClassifier(cfg.Classifier()),
		poelog.WithParseIncludeRawLine(parseRaw),
	}
	if len(includes) > 0 {
		opts = append(opts, poelog.WithParseIncludeTypes(includes...))
	}
	if len(excludes) > 0 {
		opts = append(opts, poelog.WithParseExcludeTypes(excludes...))
	}
	if !sinceTime.IsZero() || !untilTime.IsZero() {
		opts = append(opts, poelog.WithParseTimeRange(sinceTime, untilTime))
	}
	if parseNoDedup {
		opts = append(opts, poelog.WithParseNoDedup())
	}

	out := cmd.OutOrStdout()
	for ev, err := range poelog.ParseFile(ctx, path, opts...) {
		if err != nil {
			// Ctrl+C: exit silently
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("parse error: %w", err)
		}

		if err := OutputEvent(parseFormat, ev, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "parsed %s\n", path)
	}
	return nil
}

// timeLayouts are the accepted --since/--until forms. Layouts without a
// zone are read in local time, like the client log itself.
var timeLayouts = []string{
	time.RFC3339,
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q (expected RFC3339, \"2006/01/02 15:04:05\", \"2006-01-02 15:04\" or \"2006-01-02\")", name, value)
}

// parseTimeRange parses --since and --until. Either may be empty.
func parseTimeRange(since, until string) (time.Time, time.Time, error) {
	sinceTime, err := parseTimeFlag("since", since)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	untilTime, err := parseTimeFlag("until", until)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !sinceTime.IsZero() && !untilTime.IsZero() && !sinceTime.Before(untilTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}
	return sinceTime, untilTime, nil
}
