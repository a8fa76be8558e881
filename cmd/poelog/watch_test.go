package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/poelog/poelog-go/pkg/poelog"
)

func TestValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"jsonl", true},
		{"pretty", true},
		{"yaml", true},
		{"json", false},
		{"xml", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := ValidFormats[tt.format]
			if got != tt.valid {
				t.Errorf("ValidFormats[%q] = %v, want %v", tt.format, got, tt.valid)
			}
		})
	}
}

// setWatchFlags sets the watch globals and restores them when the test ends.
func setWatchFlags(t *testing.T, format string, include, exclude []string) {
	t.Helper()
	origFormat := watchFormat
	origInclude := watchIncludeTypes
	origExclude := watchExcludeTypes
	t.Cleanup(func() {
		watchFormat = origFormat
		watchIncludeTypes = origInclude
		watchExcludeTypes = origExclude
	})

	watchFormat = format
	watchIncludeTypes = include
	watchExcludeTypes = exclude
}

func TestRunWatchInvalidFormat(t *testing.T) {
	setWatchFlags(t, "xml", nil, nil)

	err := runWatch(watchCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("expected invalid format error, got: %v", err)
	}
}

func TestRunWatchInvalidZoneType(t *testing.T) {
	setWatchFlags(t, "jsonl", []string{"dungeon"}, nil)

	err := runWatch(watchCmd, nil)
	if err == nil {
		t.Fatal("expected error for invalid zone type, got nil")
	}
	if !strings.Contains(err.Error(), "unknown zone type") {
		t.Errorf("expected 'unknown zone type' error, got: %v", err)
	}
}

func TestRunWatchOverlapZoneTypes(t *testing.T) {
	setWatchFlags(t, "jsonl", []string{"map"}, []string{"map"})

	err := runWatch(watchCmd, nil)
	if err == nil {
		t.Fatal("expected error for overlapping zone types, got nil")
	}
	if !strings.Contains(err.Error(), "cannot be both included and excluded") {
		t.Errorf("expected overlap error, got: %v", err)
	}
}

func TestRunWatchInvalidConfig(t *testing.T) {
	setWatchFlags(t, "jsonl", nil, nil)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("POELOG_FOLLOW", "inotify")

	err := runWatch(watchCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "config:") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestForwardEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan poelog.ChangeEvent, 1)
	fn := forwardEvents(ctx, ch)

	fn(poelog.ChangeEvent{ZoneName: "Glacier Map"})
	select {
	case ev := <-ch:
		if ev.ZoneName != "Glacier Map" {
			t.Errorf("forwarded zone = %q, want Glacier Map", ev.ZoneName)
		}
	default:
		t.Fatal("event was not forwarded")
	}

	// With the channel full and the context canceled, the callback must
	// return instead of blocking the monitor.
	ch <- poelog.ChangeEvent{}
	cancel()
	done := make(chan struct{})
	go func() {
		fn(poelog.ChangeEvent{ZoneName: "Strand Map"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback blocked after cancel")
	}
}
