package poelog

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poelog/poelog-go/pkg/poelog/zone"
)

// Defaults used by NewMonitor.
const (
	DefaultPollInterval = time.Second
	DefaultErrorBackoff = 5 * time.Second
	DefaultStopTimeout  = 5 * time.Second
	DefaultEventBuffer  = 64

	// maxErrorBackoff caps the exponential backoff after repeated read errors.
	maxErrorBackoff = 30 * time.Second
)

// Option configures a Monitor using the functional options pattern.
type Option func(*monitorConfig)

// monitorConfig holds internal configuration for the monitor.
type monitorConfig struct {
	logPath        string
	pollInterval   time.Duration
	errorBackoff   time.Duration
	stopTimeout    time.Duration
	eventBuffer    int
	includeRawLine bool
	followMode     FollowMode
	logger         *slog.Logger
	filter         *zoneFilter
	classifier     *zone.Classifier
}

func defaultMonitorConfig() *monitorConfig {
	return &monitorConfig{
		pollInterval: DefaultPollInterval,
		errorBackoff: DefaultErrorBackoff,
		stopTimeout:  DefaultStopTimeout,
		eventBuffer:  DefaultEventBuffer,
		followMode:   FollowPoll,
	}
}

func applyOptions(opts []Option) *monitorConfig {
	cfg := defaultMonitorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.classifier == nil {
		cfg.classifier = zone.Default()
	}
	return cfg
}

func (c *monitorConfig) validate() error {
	if c.pollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %v", ErrInvalidOption, c.pollInterval)
	}
	if c.errorBackoff <= 0 {
		return fmt.Errorf("%w: error backoff must be positive, got %v", ErrInvalidOption, c.errorBackoff)
	}
	if c.stopTimeout <= 0 {
		return fmt.Errorf("%w: stop timeout must be positive, got %v", ErrInvalidOption, c.stopTimeout)
	}
	if c.eventBuffer < 0 {
		return fmt.Errorf("%w: event buffer must be non-negative, got %d", ErrInvalidOption, c.eventBuffer)
	}
	if _, ok := ParseFollowMode(string(c.followMode)); !ok {
		return fmt.Errorf("%w: unknown follow mode %q", ErrInvalidOption, c.followMode)
	}
	return nil
}

// WithLogPath sets the client log file.
// If not set, the POELOG_LOGFILE environment variable and then the default
// installation locations are tried.
func WithLogPath(path string) Option {
	return func(c *monitorConfig) {
		c.logPath = path
	}
}

// WithPollInterval sets how often the log file is checked for new content.
// Default: 1 second.
func WithPollInterval(interval time.Duration) Option {
	return func(c *monitorConfig) {
		c.pollInterval = interval
	}
}

// WithErrorBackoff sets the initial sleep after a failed read. Repeated
// failures back off exponentially up to 30 seconds.
// Default: 5 seconds.
func WithErrorBackoff(d time.Duration) Option {
	return func(c *monitorConfig) {
		c.errorBackoff = d
	}
}

// WithStopTimeout bounds how long Stop waits for the background loop.
// Default: 5 seconds.
func WithStopTimeout(d time.Duration) Option {
	return func(c *monitorConfig) {
		c.stopTimeout = d
	}
}

// WithEventBuffer sets the capacity of the queue between the reading loop
// and the zone change callback.
func WithEventBuffer(n int) Option {
	return func(c *monitorConfig) {
		c.eventBuffer = n
	}
}

// WithIncludeRawLine includes the original log line in ChangeEvent.RawLine.
// Default: false.
func WithIncludeRawLine(include bool) Option {
	return func(c *monitorConfig) {
		c.includeRawLine = include
	}
}

// WithFollowMode selects polling or filesystem notifications.
// Default: FollowPoll.
func WithFollowMode(mode FollowMode) Option {
	return func(c *monitorConfig) {
		c.followMode = mode
	}
}

// WithLogger sets the slog logger.
// If nil (default), logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *monitorConfig) {
		c.logger = logger
	}
}

// WithClassifier sets the zone classifier.
// Default: zone.Default().
func WithClassifier(classifier *zone.Classifier) Option {
	return func(c *monitorConfig) {
		c.classifier = classifier
	}
}

// WithFilter restricts which zone types reach the callback.
// Exclude takes precedence over include. Filtering happens after
// de-duplication, so statistics still count every zone.
func WithFilter(include, exclude []ZoneType) Option {
	return func(c *monitorConfig) {
		c.filter = newZoneFilter(include, exclude)
	}
}

// ParseOption configures ParseFile behavior.
type ParseOption func(*parseConfig)

type parseConfig struct {
	filter         *zoneFilter
	classifier     *zone.Classifier
	includeRawLine bool
	noDedup        bool
	since          time.Time
	until          time.Time
}

func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithParseIncludeTypes filters events to only include the specified types.
func WithParseIncludeTypes(types ...ZoneType) ParseOption {
	return func(c *parseConfig) {
		c.filter = c.filter.orEmpty()
		c.filter.only = typeSet(types)
	}
}

// WithParseExcludeTypes filters out events of the specified types.
func WithParseExcludeTypes(types ...ZoneType) ParseOption {
	return func(c *parseConfig) {
		c.filter = c.filter.orEmpty()
		c.filter.skip = typeSet(types)
	}
}

// WithParseIncludeRawLine includes the original log line in ChangeEvent.RawLine.
func WithParseIncludeRawLine(include bool) ParseOption {
	return func(c *parseConfig) {
		c.includeRawLine = include
	}
}

// WithParseClassifier sets the zone classifier used while parsing.
func WithParseClassifier(classifier *zone.Classifier) ParseOption {
	return func(c *parseConfig) {
		c.classifier = classifier
	}
}

// WithParseNoDedup yields repeated entries of the same zone instead of
// collapsing them.
func WithParseNoDedup() ParseOption {
	return func(c *parseConfig) {
		c.noDedup = true
	}
}

// WithParseTimeRange filters events to only include those within the time range.
// since is inclusive, until is exclusive.
// Zero values are ignored (no filtering for that boundary).
func WithParseTimeRange(since, until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.since = since
		c.until = until
	}
}

// WithParseSince filters events to only include those at or after the given time.
func WithParseSince(since time.Time) ParseOption {
	return func(c *parseConfig) {
		c.since = since
	}
}

// WithParseUntil filters events to only include those before the given time.
func WithParseUntil(until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.until = until
	}
}
