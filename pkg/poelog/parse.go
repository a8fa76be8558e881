package poelog

import (
	"bufio"
	"context"
	"iter"
	"os"
	"strings"

	"github.com/poelog/poelog-go/internal/parser"
	"github.com/poelog/poelog-go/pkg/poelog/zone"
)

// ParseLine parses a single zone entry line.
// It reports false when the line is not a zone entry. Since a single line
// carries no preceding area level line, AreaLevel is always nil.
//
// Example:
//
//	line := "2024/01/15 23:59:59 12345 cff94598 [INFO Client 1234] : You have entered Glacier Map."
//	if ev, ok := poelog.ParseLine(line); ok {
//	    fmt.Printf("entered %s (%s)\n", ev.ZoneName, ev.ZoneType)
//	}
func ParseLine(line string) (ChangeEvent, bool) {
	ev := parser.New(nil).Feed(line)
	if ev == nil {
		return ChangeEvent{}, false
	}
	return *ev, true
}

// ParseFile parses a historical client log and returns an iterator over
// zone change events. Area level lines are paired with the zone entry that
// follows them, and consecutive entries of the same zone are collapsed
// unless WithParseNoDedup is set.
//
// The file is opened lazily on first iteration. The iterator yields
// (ChangeEvent{}, err) once and stops on open, read or context errors.
//
// Example:
//
//	for ev, err := range poelog.ParseFile(ctx, "Client.txt",
//	    poelog.WithParseIncludeTypes(poelog.ZoneMap),
//	) {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Printf("map: %s\n", ev.ZoneName)
//	}
func ParseFile(ctx context.Context, path string, opts ...ParseOption) iter.Seq2[ChangeEvent, error] {
	if path == "" {
		return func(yield func(ChangeEvent, error) bool) {
			yield(ChangeEvent{}, ErrPathRequired)
		}
	}

	cfg := applyParseOptions(opts)

	return func(yield func(ChangeEvent, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(ChangeEvent{}, err)
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		// Increase buffer size for long lines
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 512*1024)

		p := parser.New(cfg.classifier)
		var lastZone string

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(ChangeEvent{}, err)
				return
			}

			line := strings.ToValidUTF8(scanner.Text(), "�")
			ev := p.Feed(line)
			if ev == nil {
				continue
			}

			if !cfg.noDedup {
				if ev.ZoneName == lastZone {
					continue
				}
				lastZone = ev.ZoneName
			}

			if !cfg.filter.Allows(ev.ZoneType) {
				continue
			}
			if !cfg.since.IsZero() && ev.Timestamp.Before(cfg.since) {
				continue
			}
			if !cfg.until.IsZero() && !ev.Timestamp.Before(cfg.until) {
				return // Past the time window, stop iteration
			}

			if !cfg.includeRawLine {
				ev.RawLine = ""
			}

			if !yield(*ev, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(ChangeEvent{}, err)
		}
	}
}

// ParseFileAll is a convenience function that parses a log file and
// collects all events into a slice. Stops on first error and returns
// events collected so far.
func ParseFileAll(ctx context.Context, path string, opts ...ParseOption) ([]ChangeEvent, error) {
	events := make([]ChangeEvent, 0, 64)
	for ev, err := range ParseFile(ctx, path, opts...) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Classify returns the zone type of name using the default rules.
func Classify(name string) ZoneType {
	return zone.Classify(name)
}
