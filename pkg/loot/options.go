package loot

import (
	"io"
	"log/slog"
	"time"
)

// DefaultLeague is used when no league is configured.
const DefaultLeague = "Standard"

// Callbacks are invoked synchronously by the Tracker. Every field is
// optional. A panic inside a callback is recovered and logged.
type Callbacks struct {
	// OnSessionStart receives a copy of the new session.
	OnSessionStart func(*Session)

	// OnSessionEnd receives the completed session. The tracker no longer
	// references it.
	OnSessionEnd func(*Session)

	// OnMapComplete receives a copy of each real map run as it closes.
	OnMapComplete func(*MapRun)

	// OnDropsDetected receives the drops passed to AddDrops.
	OnDropsDetected func([]Drop)

	// OnStateChange receives every state change, including the start
	// (idle to pending) and the end (to completed).
	OnStateChange func(old, new State)
}

// TrackerOption configures a Tracker.
type TrackerOption func(*trackerConfig)

type trackerConfig struct {
	league       string
	autoTracking bool
	logger       *slog.Logger
	callbacks    Callbacks
	now          func() time.Time
}

func applyTrackerOptions(opts []TrackerOption) *trackerConfig {
	cfg := &trackerConfig{
		league:       DefaultLeague,
		autoTracking: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.league == "" {
		cfg.league = DefaultLeague
	}
	return cfg
}

// WithLeague sets the league recorded on new sessions.
// Default: "Standard".
func WithLeague(league string) TrackerOption {
	return func(c *trackerConfig) {
		c.league = league
	}
}

// WithAutoTracking controls whether entering a map with no session starts
// one. Default: true.
func WithAutoTracking(enabled bool) TrackerOption {
	return func(c *trackerConfig) {
		c.autoTracking = enabled
	}
}

// WithTrackerLogger sets the slog logger. If nil, logging is disabled.
func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(c *trackerConfig) {
		c.logger = logger
	}
}

// WithCallbacks sets the lifecycle callbacks.
func WithCallbacks(cb Callbacks) TrackerOption {
	return func(c *trackerConfig) {
		c.callbacks = cb
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(c *trackerConfig) {
		c.now = now
	}
}
