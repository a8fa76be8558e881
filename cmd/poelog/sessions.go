package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poelog/poelog-go/internal/archive"
	"github.com/poelog/poelog-go/pkg/loot"
)

var sessionsFormat string

var sessionsCmd = &cobra.Command{
	Use:   "sessions [id]",
	Short: "List archived sessions or show one",
	Long: `List sessions saved by 'poelog track', oldest first.

With an ID (or a unique ID prefix), print that session's full summary.

Examples:
  # List all sessions
  poelog sessions

  # Show one session
  poelog sessions 3f2a9c1e

  # Export every session summary as JSON Lines
  poelog sessions --format jsonl`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSessionIDs,
	RunE:              runSessions,
}

func init() {
	sessionsCmd.Flags().String("archive-dir", "",
		"Directory for completed sessions (default $XDG_STATE_HOME/poelog/sessions)")
	sessionsCmd.Flags().StringVarP(&sessionsFormat, "format", "f", "pretty",
		"Output format: jsonl, pretty, yaml")

	_ = sessionsCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runSessions(cmd *cobra.Command, args []string) error {
	if !ValidFormats[sessionsFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty, yaml", sessionsFormat)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := archive.NewStore(cfg.ArchiveDir)
	out := cmd.OutOrStdout()

	sessions, err := store.List()
	if err != nil {
		// Unreadable files are reported but do not hide the rest.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if len(args) > 0 {
		sess, err := findSession(sessions, args[0])
		if err != nil {
			return err
		}
		return OutputSummary(sessionsFormat, summarizeArchived(sess), out)
	}

	if len(sessions) == 0 && sessionsFormat == "pretty" {
		fmt.Fprintf(out, "no sessions in %s\n", store.Dir())
		return nil
	}

	for _, s := range sessions {
		if sessionsFormat == "pretty" {
			err = OutputSessionLine(s, out)
		} else {
			err = OutputSummary(sessionsFormat, summarizeArchived(s), out)
		}
		if err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

// findSession returns the session whose ID equals or uniquely starts
// with prefix.
func findSession(sessions []*loot.Session, prefix string) (*loot.Session, error) {
	var match *loot.Session
	for _, s := range sessions {
		if s.ID == prefix {
			return s, nil
		}
		if strings.HasPrefix(s.ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("session id %q is ambiguous", prefix)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("session %q: %w", prefix, archive.ErrNotFound)
	}
	return match, nil
}

// summarizeArchived computes stats as of the session's end.
func summarizeArchived(s *loot.Session) loot.SessionStats {
	end := s.StartedAt
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return loot.Summarize(s, end)
}
