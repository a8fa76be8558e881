package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poelog/poelog-go/pkg/poelog"
)

const cliSampleLog = `2024/01/15 10:00:00 1 a [INFO Client 1] Connecting to instance server
2024/01/15 10:00:01 1 a [DEBUG Client 1] Generating level 68 area "MapWorldsStrand" with seed 1
2024/01/15 10:00:02 1 a [INFO Client 1] : You have entered Strand Map.
2024/01/15 10:05:00 1 a [INFO Client 1] : You have entered Celestial Hideout.
2024/01/15 10:05:30 1 a [INFO Client 1] : You have entered Celestial Hideout.
2024/01/15 10:06:01 1 a [INFO Client 1] : You have entered Lioneye's Watch.
`

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name      string
		since     string
		until     string
		wantSince time.Time
		wantUntil time.Time
		wantErr   bool
	}{
		{
			name: "empty strings",
		},
		{
			name:      "valid since only",
			since:     "2024-01-15T12:00:00Z",
			wantSince: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "valid until only",
			until:     "2024-01-16T00:00:00Z",
			wantUntil: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "valid range",
			since:     "2024-01-15T12:00:00Z",
			until:     "2024-01-16T00:00:00Z",
			wantSince: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			wantUntil: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "log timestamp format is local time",
			since:     "2024/01/15 20:00:00",
			wantSince: time.Date(2024, 1, 15, 20, 0, 0, 0, time.Local),
		},
		{
			name:      "date only",
			until:     "2024-01-16",
			wantUntil: time.Date(2024, 1, 16, 0, 0, 0, 0, time.Local),
		},
		{
			name:    "invalid since format",
			since:   "15.01.2024",
			wantErr: true,
		},
		{
			name:    "invalid until format",
			until:   "not-a-date",
			wantErr: true,
		},
		{
			name:    "empty range",
			since:   "2024-01-15T00:00:00Z",
			until:   "2024-01-15T00:00:00Z",
			wantErr: true,
		},
		{
			name:    "since after until",
			since:   "2024-01-16T00:00:00Z",
			until:   "2024-01-15T00:00:00Z",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSince, gotUntil, err := parseTimeRange(tt.since, tt.until)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseTimeRange() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if !gotSince.Equal(tt.wantSince) {
					t.Errorf("parseTimeRange() since = %v, want %v", gotSince, tt.wantSince)
				}
				if !gotUntil.Equal(tt.wantUntil) {
					t.Errorf("parseTimeRange() until = %v, want %v", gotUntil, tt.wantUntil)
				}
			}
		})
	}
}

// setParseFlags sets the parse globals and restores them when the test ends.
func setParseFlags(t *testing.T, format string, include []string, noDedup bool) {
	t.Helper()
	origFormat := parseFormat
	origInclude := parseIncludeTypes
	origExclude := parseExcludeTypes
	origSince, origUntil := parseSince, parseUntil
	origNoDedup := parseNoDedup
	origRaw := parseRaw
	t.Cleanup(func() {
		parseFormat = origFormat
		parseIncludeTypes = origInclude
		parseExcludeTypes = origExclude
		parseSince, parseUntil = origSince, origUntil
		parseNoDedup = origNoDedup
		parseRaw = origRaw
		parseCmd.SetOut(nil)
	})

	parseFormat = format
	parseIncludeTypes = include
	parseExcludeTypes = nil
	parseSince, parseUntil = "", ""
	parseNoDedup = noDedup
	parseRaw = false
}

func writeCLISample(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "Client.txt")
	if err := os.WriteFile(path, []byte(cliSampleLog), 0644); err != nil {
		t.Fatalf("failed to write sample log: %v", err)
	}
	return path
}

func decodeEvents(t *testing.T, out string) []poelog.ChangeEvent {
	t.Helper()
	var events []poelog.ChangeEvent
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var ev poelog.ChangeEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestRunParse(t *testing.T) {
	path := writeCLISample(t)
	setParseFlags(t, "jsonl", nil, false)

	var buf bytes.Buffer
	parseCmd.SetOut(&buf)

	if err := runParse(parseCmd, []string{path}); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	events := decodeEvents(t, buf.String())
	want := []string{"Strand Map", "Celestial Hideout", "Lioneye's Watch"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, name := range want {
		if events[i].ZoneName != name {
			t.Errorf("events[%d].ZoneName = %q, want %q", i, events[i].ZoneName, name)
		}
	}
	if events[0].AreaLevel == nil || *events[0].AreaLevel != 68 {
		t.Errorf("events[0].AreaLevel = %v, want 68", events[0].AreaLevel)
	}
}

func TestRunParse_NoDedupAndFilter(t *testing.T) {
	path := writeCLISample(t)
	setParseFlags(t, "jsonl", []string{"hideout"}, true)

	var buf bytes.Buffer
	parseCmd.SetOut(&buf)

	if err := runParse(parseCmd, []string{path}); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	events := decodeEvents(t, buf.String())
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 hideout entries: %+v", len(events), events)
	}
	for _, ev := range events {
		if ev.ZoneType != poelog.ZoneHideout {
			t.Errorf("unexpected zone type %q", ev.ZoneType)
		}
	}
}

func TestRunParse_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	setParseFlags(t, "jsonl", nil, false)

	err := runParse(parseCmd, []string{filepath.Join(t.TempDir(), "absent.txt")})
	if err == nil || !strings.Contains(err.Error(), "client log not found") {
		t.Errorf("expected not found error, got: %v", err)
	}
}

func TestRunParse_InvalidFormat(t *testing.T) {
	setParseFlags(t, "csv", nil, false)

	err := runParse(parseCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("expected invalid format error, got: %v", err)
	}
}
