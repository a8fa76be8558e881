package poelog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/poelog/poelog-go/internal/logfinder"
	"github.com/poelog/poelog-go/internal/parser"
	"github.com/poelog/poelog-go/internal/tailer"
)

// Stats is a point-in-time snapshot of monitor counters.
type Stats struct {
	ZonesDetected  int    `json:"zones_detected" yaml:"zones_detected"`
	MapEntries     int    `json:"map_entries" yaml:"map_entries"`
	HideoutEntries int    `json:"hideout_entries" yaml:"hideout_entries"`
	LinesProcessed int    `json:"lines_processed" yaml:"lines_processed"`
	Running        bool   `json:"running" yaml:"running"`
	Path           string `json:"path" yaml:"path"`
	PathExists     bool   `json:"path_exists" yaml:"path_exists"`
	LastZone       string `json:"last_zone,omitempty" yaml:"last_zone,omitempty"`
}

// ZoneChangeFunc receives zone change events.
type ZoneChangeFunc func(ChangeEvent)

// Monitor tails the client log and reports zone changes.
//
// Reading happens on one background goroutine. Events are handed to a
// second goroutine through a buffered queue, and that goroutine invokes the
// registered callback, so a slow callback never delays reading.
type Monitor struct {
	cfg  *monitorConfig
	path string

	// mu guards the counters, lastZone and the lifecycle fields.
	mu       sync.Mutex
	stats    Stats
	lastZone string
	running  bool
	cancel   context.CancelFunc
	doneCh   chan struct{}

	cbMu     sync.RWMutex
	onChange ZoneChangeFunc
}

// NewMonitor creates a monitor.
// Validates options and resolves the log path. A missing log file is not
// an error: the monitor reads it once it appears.
// Does NOT start goroutines (cheap to call).
func NewMonitor(opts ...Option) (*Monitor, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path, exists := logfinder.FindLogFile(cfg.logPath)
	if !exists {
		cfg.logger.Warn("client log not found; will keep checking", "path", path)
	}

	return &Monitor{cfg: cfg, path: path}, nil
}

// Path returns the resolved log file path.
func (m *Monitor) Path() string {
	return m.path
}

// OnZoneChange registers the zone change callback, replacing any previous
// one. Passing nil removes it. The callback runs on the monitor's dispatch
// goroutine and should return quickly.
func (m *Monitor) OnZoneChange(fn ZoneChangeFunc) {
	m.cbMu.Lock()
	m.onChange = fn
	m.cbMu.Unlock()
}

// Start begins monitoring. It returns false if the monitor is already
// running, or if a previous run whose Stop timed out is still delivering a
// callback. Content present in the file before Start is never reported.
func (m *Monitor) Start() bool {
	m.mu.Lock()
	if m.running || !isClosed(m.doneCh) {
		m.mu.Unlock()
		return false
	}
	m.running = true
	m.stats.Running = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	doneCh := make(chan struct{})
	m.doneCh = doneCh
	m.mu.Unlock()

	events := make(chan ChangeEvent, m.cfg.eventBuffer)

	m.cfg.logger.Info("starting zone monitor", "path", m.path, "follow", m.cfg.followMode)

	switch m.cfg.followMode {
	case FollowNotify:
		go m.notifyLoop(ctx, events)
	default:
		poller := tailer.NewPoller(m.path)
		if err := poller.SeekEnd(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				m.cfg.logger.Warn("client log does not exist yet", "path", m.path)
			} else {
				m.cfg.logger.Warn("could not stat client log", "path", m.path, "err", err)
			}
		}
		go m.pollLoop(ctx, poller, events)
	}
	go m.dispatch(events, doneCh)

	return true
}

// Stop stops monitoring and waits for the background goroutines to exit,
// at most the configured stop timeout. It returns false if the wait timed
// out; the monitor cannot be restarted until those goroutines are gone,
// and a later Stop waits for them again. Safe to call multiple times.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	wasRunning := m.running
	cancel := m.cancel
	doneCh := m.doneCh
	m.running = false
	m.stats.Running = false
	m.mu.Unlock()

	if isClosed(doneCh) {
		return true
	}
	if cancel != nil {
		cancel()
	}

	select {
	case <-doneCh:
	case <-time.After(m.cfg.stopTimeout):
		m.cfg.logger.Warn("zone monitor did not stop in time", "timeout", m.cfg.stopTimeout)
		return false
	}

	if wasRunning {
		m.cfg.logger.Info("zone monitor stopped")
	}
	return true
}

// isClosed reports whether ch is nil or closed.
func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// IsRunning reports whether the monitor has been started and not stopped.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stats returns a snapshot of the monitor counters.
// Safe to call concurrently with the background loop.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	s := m.stats
	s.LastZone = m.lastZone
	m.mu.Unlock()

	s.Path = m.path
	s.PathExists = logfinder.Exists(m.path)
	return s
}

func (m *Monitor) pollLoop(ctx context.Context, poller *tailer.Poller, events chan<- ChangeEvent) {
	defer close(events)

	bo := m.newBackOff()
	p := parser.New(m.cfg.classifier)

	for {
		wait := m.cfg.pollInterval

		res, err := poller.Poll()
		switch {
		case err == nil:
			bo.Reset()
			if res.Truncated {
				m.cfg.logger.Info("client log truncated; reading from start", "path", m.path)
				p.Reset()
			}
			for _, line := range res.Lines {
				if !m.processLine(ctx, p, line, events) {
					return
				}
			}
		case errors.Is(err, fs.ErrNotExist):
			m.cfg.logger.Debug("client log not found", "path", m.path)
		default:
			wait = bo.NextBackOff()
			m.cfg.logger.Warn("reading client log failed", "path", m.path, "err", err, "retry_in", wait)
		}

		if !sleep(ctx, wait) {
			return
		}
	}
}

// newBackOff returns the retry schedule for failed reads: starting at the
// configured error backoff, capped at maxErrorBackoff, never giving up.
func (m *Monitor) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.errorBackoff
	bo.MaxInterval = maxErrorBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// errFollowEnded reports that the follower closed its channels while the
// monitor was still running.
var errFollowEnded = errors.New("follower ended unexpectedly")

// notifyLoop follows the log with filesystem notifications. A failed or
// ended follow is retried with backoff, like a failed poll tick.
func (m *Monitor) notifyLoop(ctx context.Context, events chan<- ChangeEvent) {
	defer close(events)

	bo := m.newBackOff()
	p := parser.New(m.cfg.classifier)

	// A log that is missing at start is read from its first line once it
	// appears, as the poll mode does.
	fromStart := false

	for {
		err := m.follow(ctx, p, tailer.FollowOptions{FromStart: fromStart, MustExist: true}, bo, events)
		if ctx.Err() != nil {
			return
		}

		wait := bo.NextBackOff()
		if errors.Is(err, fs.ErrNotExist) {
			fromStart = true
			wait = m.cfg.pollInterval
			m.cfg.logger.Debug("client log not found", "path", m.path)
		} else {
			fromStart = false
			m.cfg.logger.Warn("following client log failed", "path", m.path, "err", err, "retry_in", wait)
		}

		if !sleep(ctx, wait) {
			return
		}
	}
}

// follow runs one follower until ctx is done or the follower fails. It
// returns nil only when ctx is done.
func (m *Monitor) follow(ctx context.Context, p *parser.Parser, opts tailer.FollowOptions, bo backoff.BackOff, events chan<- ChangeEvent) error {
	f, err := tailer.Follow(ctx, m.path, opts)
	if err != nil {
		return err
	}
	bo.Reset()
	defer func() {
		if err := f.Stop(); err != nil {
			m.cfg.logger.Debug("stopping follower", "err", err)
		}
		if n := f.DroppedErrors(); n > 0 {
			m.cfg.logger.Warn("follow errors dropped", "count", n)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-f.Lines():
			if !ok {
				return errFollowEnded
			}
			if !m.processLine(ctx, p, line, events) {
				return nil
			}
		case err, ok := <-f.Errors():
			if !ok {
				return errFollowEnded
			}
			m.cfg.logger.Warn("following client log failed", "path", m.path, "err", err)
		}
	}
}

// processLine feeds one line to the parser and queues the resulting event,
// if any. It returns false when ctx was cancelled while queueing.
func (m *Monitor) processLine(ctx context.Context, p *parser.Parser, line string, events chan<- ChangeEvent) bool {
	m.mu.Lock()
	m.stats.LinesProcessed++
	m.mu.Unlock()

	ev := p.Feed(line)
	if ev == nil {
		return true
	}
	if !m.cfg.includeRawLine {
		ev.RawLine = ""
	}

	m.mu.Lock()
	if ev.ZoneName == m.lastZone {
		m.mu.Unlock()
		m.cfg.logger.Debug("ignoring repeated zone", "zone", ev.ZoneName)
		return true
	}
	m.lastZone = ev.ZoneName
	m.stats.ZonesDetected++
	switch ev.ZoneType {
	case ZoneMap:
		m.stats.MapEntries++
	case ZoneHideout:
		m.stats.HideoutEntries++
	}
	m.mu.Unlock()

	m.cfg.logger.Debug("zone entered", "zone", ev.ZoneName, "zone_type", ev.ZoneType, "area_level", levelAttr(ev.AreaLevel))

	if !m.cfg.filter.Allows(ev.ZoneType) {
		return true
	}

	select {
	case events <- *ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Monitor) dispatch(events <-chan ChangeEvent, doneCh chan<- struct{}) {
	defer close(doneCh)
	for ev := range events {
		m.deliver(ev)
	}
}

func (m *Monitor) deliver(ev ChangeEvent) {
	m.cbMu.RLock()
	fn := m.onChange
	m.cbMu.RUnlock()
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.cfg.logger.Error("zone change callback panicked", "zone", ev.ZoneName, "err", fmt.Sprint(r))
		}
	}()
	fn(ev)
}

// sleep waits for d or until ctx is done. It returns false if ctx is done.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func levelAttr(level *int) any {
	if level == nil {
		return nil
	}
	return *level
}
