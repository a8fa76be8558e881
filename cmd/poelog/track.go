package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/poelog/poelog-go/internal/archive"
	"github.com/poelog/poelog-go/pkg/loot"
	"github.com/poelog/poelog-go/pkg/poelog"
)

var (
	// track flags
	trackName           string
	trackNoAuto         bool
	trackNoArchive      bool
	trackDropsStdin     bool
	trackFormat         string
	trackStatusInterval time.Duration
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track a farming session from zone changes",
	Long: `Track map runs and drops while you play.

A session starts automatically when you enter a map (disable with
--no-auto to start one immediately instead). Every map entry opens a new
map run; returning to the hideout closes it. Press Ctrl+C to end the
session: a summary is printed and the session is saved to the archive.

Drops come from an external stash differ. With --drops-stdin, each line on
standard input is a JSON drop object or an array of them:

  {"item_name":"Divine Orb","stack_size":1,"chaos_value":150,"rarity":"currency"}

Progress lines (map runs and state changes) are written to stderr; the
final summary goes to stdout.

Examples:
  # Track with auto-start
  poelog track

  # Start a named session right away
  poelog track --no-auto --name "T17 essence farm" --league Settlers

  # Feed drops from a stash differ
  stashdiff | poelog track --drops-stdin

  # JSON summary without archiving
  poelog track --format jsonl --no-archive`,
	RunE: runTrack,
}

func init() {
	addMonitorFlags(trackCmd)
	trackCmd.Flags().StringVar(&trackName, "name", "",
		"Session name (default \"Session YYYY-MM-DD HH:MM\")")
	trackCmd.Flags().String("league", loot.DefaultLeague,
		"League recorded on the session")
	trackCmd.Flags().String("archive-dir", "",
		"Directory for completed sessions (default $XDG_STATE_HOME/poelog/sessions)")
	trackCmd.Flags().BoolVar(&trackNoAuto, "no-auto", false,
		"Start a session immediately instead of on the first map")
	trackCmd.Flags().BoolVar(&trackNoArchive, "no-archive", false,
		"Do not save the session when it ends")
	trackCmd.Flags().BoolVar(&trackDropsStdin, "drops-stdin", false,
		"Read drops as JSON lines from standard input")
	trackCmd.Flags().StringVarP(&trackFormat, "format", "f", "pretty",
		"Summary format: jsonl, pretty, yaml")
	trackCmd.Flags().DurationVar(&trackStatusInterval, "status-interval", 0,
		"Print live session stats to stderr at this interval (0 = off)")

	_ = trackCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runTrack(cmd *cobra.Command, args []string) error {
	if !ValidFormats[trackFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty, yaml", trackFormat)
	}
	if trackStatusInterval < 0 {
		return fmt.Errorf("--status-interval must not be negative")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr)
	progress := cmd.ErrOrStderr()

	tracker := loot.NewTracker(
		loot.WithLeague(cfg.League),
		loot.WithAutoTracking(cfg.AutoTrack && !trackNoAuto),
		loot.WithTrackerLogger(logger),
		loot.WithCallbacks(progressCallbacks(progress)),
	)

	if trackNoAuto {
		if _, err := tracker.StartSession(trackName, false); err != nil {
			return err
		}
	}

	opts := append(cfg.MonitorOptions(), poelog.WithLogger(logger))
	monitor, err := poelog.NewMonitor(opts...)
	if err != nil {
		return err
	}

	events := make(chan poelog.ChangeEvent, 16)
	monitor.OnZoneChange(forwardEvents(ctx, events))
	monitor.Start()

	var drops <-chan []loot.Drop
	if trackDropsStdin {
		ch := make(chan []loot.Drop)
		go readDrops(ctx, cmd.InOrStdin(), ch, logger)
		drops = ch
	}

	loop := trackLoop{
		tracker:        tracker,
		name:           trackName,
		statusInterval: trackStatusInterval,
		status:         progress,
	}
	loop.run(ctx, events, drops)

	if !monitor.Stop() {
		logger.Warn("monitor did not stop in time")
	}

	return finishSession(tracker, trackFormat, cmd.OutOrStdout(), sessionStore(cfg.ArchiveDir, trackNoArchive), logger)
}

// trackLoop feeds zone changes and drop batches to a tracker. All tracker
// calls happen on the goroutine running run.
type trackLoop struct {
	tracker        *loot.Tracker
	name           string
	statusInterval time.Duration
	status         io.Writer
}

// run consumes events and drops until ctx is done. A nil drops channel
// is never ready.
func (l *trackLoop) run(ctx context.Context, events <-chan poelog.ChangeEvent, drops <-chan []loot.Drop) {
	var tick <-chan time.Time
	if l.statusInterval > 0 {
		ticker := time.NewTicker(l.statusInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case ev := <-events:
			l.handleZone(ev)
		case batch, ok := <-drops:
			if !ok {
				drops = nil
				continue
			}
			l.tracker.AddDrops(batch)
		case <-tick:
			_ = outputStatusLine(l.tracker.SessionStats(), l.status)
		case <-ctx.Done():
			return
		}
	}
}

func (l *trackLoop) handleZone(ev poelog.ChangeEvent) {
	// A map entry with auto tracking starts the session under the chosen
	// name before the tracker would pick a default one.
	if l.name != "" && ev.ZoneType == poelog.ZoneMap &&
		l.tracker.State() == loot.StateIdle && l.tracker.AutoTrackingEnabled() {
		if _, err := l.tracker.StartSession(l.name, true); err != nil {
			return
		}
	}
	l.tracker.HandleZoneChange(ev)
}

// progressCallbacks prints map runs and state changes as they happen.
func progressCallbacks(w io.Writer) loot.Callbacks {
	return loot.Callbacks{
		OnMapComplete: func(run *loot.MapRun) {
			_ = OutputMapRun(run, w)
		},
		OnStateChange: func(old, new loot.State) {
			_ = OutputStateChange(old, new, time.Now(), w)
		},
		OnDropsDetected: func(drops []loot.Drop) {
			for _, d := range drops {
				fmt.Fprintf(w, "  + %s x%d (%s)\n", d.ItemName, d.StackSize, formatChaos(d.TotalValue()))
			}
		},
	}
}

// sessionStore returns the archive to save into, or nil when archiving is
// disabled.
func sessionStore(dir string, disabled bool) *archive.Store {
	if disabled {
		return nil
	}
	return archive.NewStore(dir)
}

// finishSession ends the live session, if any, prints its summary and
// saves it to store when store is non-nil.
func finishSession(tracker *loot.Tracker, format string, w io.Writer, store *archive.Store, logger *slog.Logger) error {
	if !tracker.State().IsLive() {
		logger.Warn("no session was started; nothing to summarize")
		return nil
	}

	sess, err := tracker.EndSession()
	if err != nil {
		return err
	}

	if err := OutputSummary(format, loot.Summarize(sess, *sess.EndedAt), w); err != nil {
		return fmt.Errorf("output error: %w", err)
	}

	if store == nil {
		return nil
	}
	if err := store.Save(sess); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	logger.Info("session saved", "id", sess.ID, "path", store.Path(sess.ID))
	return nil
}

// outputStatusLine writes a one-line live summary.
func outputStatusLine(st loot.SessionStats, w io.Writer) error {
	if !st.Active {
		_, err := fmt.Fprintln(w, styleTime.Render("[status] no session"))
		return err
	}
	line := fmt.Sprintf("[status] %s %s: %d maps, %d drops, %s (%s/h)",
		st.State, formatDuration(st.Duration), st.TotalMaps, st.TotalDrops,
		formatChaos(st.TotalChaosValue), formatChaos(st.ChaosPerHour))
	if st.CurrentMap != "" {
		line += fmt.Sprintf(", in %s for %s", st.CurrentMap, formatDuration(st.CurrentMapTime))
	}
	_, err := fmt.Fprintln(w, styleTime.Render(line))
	return err
}

// readDrops decodes drop batches from r, one JSON line each, and sends
// them on ch. It closes ch at EOF. Malformed lines are logged and skipped.
func readDrops(ctx context.Context, r io.Reader, ch chan<- []loot.Drop, logger *slog.Logger) {
	defer close(ch)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		batch, err := decodeDrops(scanner.Bytes())
		if err != nil {
			logger.Warn("skipping drops line", "err", err)
			continue
		}
		if len(batch) == 0 {
			continue
		}
		select {
		case ch <- batch:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading drops", "err", err)
	}
}

// decodeDrops parses one line holding a drop object or an array of drops.
// Blank lines yield no drops. Rarity is normalized and a missing stack
// size counts as one.
func decodeDrops(line []byte) ([]loot.Drop, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var drops []loot.Drop
	if line[0] == '[' {
		if err := json.Unmarshal(line, &drops); err != nil {
			return nil, fmt.Errorf("decoding drops: %w", err)
		}
	} else {
		var d loot.Drop
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, fmt.Errorf("decoding drop: %w", err)
		}
		drops = []loot.Drop{d}
	}

	for i := range drops {
		d := &drops[i]
		if d.ItemName == "" {
			return nil, fmt.Errorf("drop %d has no item_name", i)
		}
		if d.StackSize <= 0 {
			d.StackSize = 1
		}
		d.Rarity = loot.ParseRarity(string(d.Rarity))
	}
	return drops, nil
}
