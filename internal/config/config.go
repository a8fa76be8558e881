// Package config loads CLI configuration from flags, POELOG_* environment
// variables and an optional YAML file using Viper.
//
// Precedence, highest first: explicitly set flags, environment, config
// file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/poelog/poelog-go/pkg/loot"
	"github.com/poelog/poelog-go/pkg/poelog"
	"github.com/poelog/poelog-go/pkg/poelog/zone"
)

const (
	// EnvPrefix is prepended to every environment variable, e.g.
	// POELOG_POLL_INTERVAL.
	EnvPrefix = "POELOG"

	appDirName     = "poelog"
	configFileName = "config"
)

// Config holds CLI configuration.
type Config struct {
	// LogPath is the Client.txt path; empty means auto-detect.
	LogPath string `mapstructure:"log_path" yaml:"log_path"`
	// PollInterval is how often the log is checked for new content.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// ErrorBackoff is the initial sleep after a failed read.
	ErrorBackoff time.Duration `mapstructure:"error_backoff" yaml:"error_backoff"`
	// Follow is "poll" or "notify".
	Follow string `mapstructure:"follow" yaml:"follow"`
	// League is recorded on new sessions.
	League string `mapstructure:"league" yaml:"league"`
	// AutoTrack starts a session when a map is entered.
	AutoTrack bool `mapstructure:"auto_track" yaml:"auto_track"`
	// ArchiveDir holds completed sessions; empty means the XDG state dir.
	ArchiveDir string `mapstructure:"archive_dir" yaml:"archive_dir"`
	// Zones adds classifier keywords ahead of the built-in ones.
	Zones zone.Rules `mapstructure:"zones" yaml:"zones"`
}

// flagKeys maps config keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"log_path":      "log-path",
	"poll_interval": "poll-interval",
	"error_backoff": "error-backoff",
	"follow":        "follow",
	"league":        "league",
	"archive_dir":   "archive-dir",
}

// Load builds a Config. An explicit file must exist; the default file
// ($XDG_CONFIG_HOME/poelog/config.yaml) is optional. Flags in fs that map to
// a config key override every other source when set. fs may be nil.
func Load(file string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		if dir := DefaultDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", describe(file), err)
		}
	}

	if fs != nil {
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: binding flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_path", "")
	v.SetDefault("poll_interval", poelog.DefaultPollInterval)
	v.SetDefault("error_backoff", poelog.DefaultErrorBackoff)
	v.SetDefault("follow", string(poelog.FollowPoll))
	v.SetDefault("league", loot.DefaultLeague)
	v.SetDefault("auto_track", true)
	v.SetDefault("archive_dir", "")
	v.SetDefault("zones.hideout", []string{})
	v.SetDefault("zones.town", []string{})
	v.SetDefault("zones.map", []string{})
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.ErrorBackoff <= 0 {
		return fmt.Errorf("config: error_backoff must be positive, got %v", c.ErrorBackoff)
	}
	if _, ok := poelog.ParseFollowMode(c.Follow); !ok {
		return fmt.Errorf("config: follow must be poll or notify, got %q", c.Follow)
	}
	return nil
}

// Classifier returns a zone classifier with the configured keywords added
// to the built-in rules.
func (c *Config) Classifier() *zone.Classifier {
	return zone.NewClassifier(zone.DefaultRules().Merge(c.Zones))
}

// MonitorOptions converts the config into monitor options.
func (c *Config) MonitorOptions() []poelog.Option {
	mode, _ := poelog.ParseFollowMode(c.Follow)
	return []poelog.Option{
		poelog.WithLogPath(c.LogPath),
		poelog.WithPollInterval(c.PollInterval),
		poelog.WithErrorBackoff(c.ErrorBackoff),
		poelog.WithFollowMode(mode),
		poelog.WithClassifier(c.Classifier()),
	}
}

// DefaultDir returns $XDG_CONFIG_HOME/poelog or the platform equivalent,
// or "" if it cannot be determined.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, appDirName)
}

func describe(file string) string {
	if file == "" {
		return "default config file"
	}
	return file
}
