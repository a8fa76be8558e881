package poelog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poelog/poelog-go/pkg/poelog"
	"github.com/poelog/poelog-go/pkg/poelog/zone"
)

const sampleLog = `2024/01/15 10:00:00 1 a [INFO Client 1] Connecting to instance server
2024/01/15 10:00:01 1 a [DEBUG Client 1] Generating level 68 area "MapWorldsStrand" with seed 1
2024/01/15 10:00:02 1 a [INFO Client 1] : You have entered Strand Map.
2024/01/15 10:05:00 1 a [INFO Client 1] : You have entered Celestial Hideout.
2024/01/15 10:05:30 1 a [INFO Client 1] : You have entered Celestial Hideout.
2024/01/15 10:06:00 1 a [DEBUG Client 1] Generating level 83 area "MapWorldsGlacier" with seed 2
2024/01/15 10:06:01 1 a [INFO Client 1] : You have entered Glacier Map.
2024/01/15 10:10:00 1 a [INFO Client 1] : You have entered Lioneye's Watch.
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Client.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func zoneNames(events []poelog.ChangeEvent) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.ZoneName
	}
	return names
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantZone string
		wantType poelog.ZoneType
	}{
		{
			name:     "map entry",
			line:     "2024/01/15 23:59:59 12345 cff94598 [INFO Client 1234] : You have entered Glacier Map.",
			wantOK:   true,
			wantZone: "Glacier Map",
			wantType: poelog.ZoneMap,
		},
		{
			name:     "town entry",
			line:     "2024/01/15 23:59:59 1 a [INFO Client 1] : You have entered Karui Shores.",
			wantOK:   true,
			wantZone: "Karui Shores",
			wantType: poelog.ZoneTown,
		},
		{
			name:   "area level line",
			line:   `2024/01/15 23:59:58 1 a [DEBUG Client 1] Generating level 83 area "MapWorldsGlacier"`,
			wantOK: false,
		},
		{
			name:   "unrelated",
			line:   "2024/01/15 23:59:58 1 a [INFO Client 1] Connecting to instance server",
			wantOK: false,
		},
		{
			name:   "empty",
			line:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := poelog.ParseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if ev.ZoneName != tt.wantZone {
				t.Errorf("ZoneName = %q, want %q", ev.ZoneName, tt.wantZone)
			}
			if ev.ZoneType != tt.wantType {
				t.Errorf("ZoneType = %s, want %s", ev.ZoneType, tt.wantType)
			}
			if ev.AreaLevel != nil {
				t.Errorf("AreaLevel = %d, want nil", *ev.AreaLevel)
			}
			want := time.Date(2024, 1, 15, 23, 59, 59, 0, time.Local)
			if !ev.Timestamp.Equal(want) {
				t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := writeSample(t, sampleLog)

	events, err := poelog.ParseFileAll(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFileAll() error = %v", err)
	}

	want := []string{"Strand Map", "Celestial Hideout", "Glacier Map", "Lioneye's Watch"}
	if got := zoneNames(events); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("zones = %v, want %v", got, want)
	}

	if lvl := events[0].AreaLevel; lvl == nil || *lvl != 68 {
		t.Errorf("Strand Map AreaLevel = %v, want 68", lvl)
	}
	if lvl := events[1].AreaLevel; lvl != nil {
		t.Errorf("Celestial Hideout AreaLevel = %d, want nil", *lvl)
	}
	if lvl := events[2].AreaLevel; lvl == nil || *lvl != 83 {
		t.Errorf("Glacier Map AreaLevel = %v, want 83", lvl)
	}
	for _, ev := range events {
		if ev.RawLine != "" {
			t.Errorf("RawLine = %q, want empty by default", ev.RawLine)
		}
	}
}

func TestParseFile_NoDedup(t *testing.T) {
	path := writeSample(t, sampleLog)

	events, err := poelog.ParseFileAll(context.Background(), path, poelog.WithParseNoDedup())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 5 {
		t.Errorf("got %d events, want 5: %v", len(events), zoneNames(events))
	}
}

func TestParseFile_TypeFilters(t *testing.T) {
	path := writeSample(t, sampleLog)

	tests := []struct {
		name string
		opts []poelog.ParseOption
		want []string
	}{
		{
			name: "include maps",
			opts: []poelog.ParseOption{poelog.WithParseIncludeTypes(poelog.ZoneMap)},
			want: []string{"Strand Map", "Glacier Map"},
		},
		{
			name: "exclude town",
			opts: []poelog.ParseOption{poelog.WithParseExcludeTypes(poelog.ZoneTown)},
			want: []string{"Strand Map", "Celestial Hideout", "Glacier Map"},
		},
		{
			name: "exclude wins over include",
			opts: []poelog.ParseOption{
				poelog.WithParseIncludeTypes(poelog.ZoneMap, poelog.ZoneHideout),
				poelog.WithParseExcludeTypes(poelog.ZoneMap),
			},
			want: []string{"Celestial Hideout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := poelog.ParseFileAll(context.Background(), path, tt.opts...)
			if err != nil {
				t.Fatal(err)
			}
			if got := zoneNames(events); strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("zones = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFile_TimeRange(t *testing.T) {
	path := writeSample(t, sampleLog)

	since := time.Date(2024, 1, 15, 10, 5, 0, 0, time.Local)
	until := time.Date(2024, 1, 15, 10, 10, 0, 0, time.Local)

	events, err := poelog.ParseFileAll(context.Background(), path, poelog.WithParseTimeRange(since, until))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Celestial Hideout", "Glacier Map"}
	if got := zoneNames(events); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("zones = %v, want %v", got, want)
	}
}

func TestParseFile_IncludeRawLine(t *testing.T) {
	path := writeSample(t, sampleLog)

	events, err := poelog.ParseFileAll(context.Background(), path, poelog.WithParseIncludeRawLine(true))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) == 0 {
		t.Fatal("no events")
	}
	if !strings.HasSuffix(events[0].RawLine, "You have entered Strand Map.") {
		t.Errorf("RawLine = %q", events[0].RawLine)
	}
}

func TestParseFile_CustomClassifier(t *testing.T) {
	path := writeSample(t, sampleLog)

	rules := zone.DefaultRules()
	rules.Hideout = append(rules.Hideout, "lioneye")
	events, err := poelog.ParseFileAll(context.Background(), path,
		poelog.WithParseClassifier(zone.NewClassifier(rules)),
		poelog.WithParseIncludeTypes(poelog.ZoneHideout),
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Celestial Hideout", "Lioneye's Watch"}
	if got := zoneNames(events); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("zones = %v, want %v", got, want)
	}
}

func TestParseFile_EmptyPath(t *testing.T) {
	_, err := poelog.ParseFileAll(context.Background(), "")
	if !errors.Is(err, poelog.ErrPathRequired) {
		t.Errorf("error = %v, want %v", err, poelog.ErrPathRequired)
	}
}

func TestParseFile_MissingFile(t *testing.T) {
	_, err := poelog.ParseFileAll(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestParseFile_ContextCanceled(t *testing.T) {
	path := writeSample(t, sampleLog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poelog.ParseFileAll(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestParseFile_EarlyBreak(t *testing.T) {
	path := writeSample(t, sampleLog)

	count := 0
	for _, err := range poelog.ParseFile(context.Background(), path) {
		if err != nil {
			t.Fatal(err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestClassify(t *testing.T) {
	if got := poelog.Classify("Glacier Map"); got != poelog.ZoneMap {
		t.Errorf("Classify(Glacier Map) = %s, want map", got)
	}
	if got := poelog.Classify(""); got != poelog.ZoneUnknown {
		t.Errorf("Classify(\"\") = %s, want unknown", got)
	}
}
