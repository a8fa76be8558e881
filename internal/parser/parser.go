// Package parser turns Client.txt lines into zone change events.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poelog/poelog-go/pkg/poelog/zone"
)

// TimestampLayout is the layout of the timestamp that prefixes each log line.
const TimestampLayout = "2006/01/02 15:04:05"

var (
	areaLevelPattern = regexp.MustCompile(`(?i)Generating level (\d+) area`)
	zoneEntryPattern = regexp.MustCompile(`(?i)(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}).*You have entered (.+)\.`)
)

// ParseAreaLevel reports the area level announced by line, if any.
func ParseAreaLevel(line string) (int, bool) {
	m := areaLevelPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return level, true
}

// ParseZoneEntry extracts the timestamp text and zone name from a zone
// entry line.
func ParseZoneEntry(line string) (stamp, name string, ok bool) {
	m := zoneEntryPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	name = strings.TrimSpace(m[2])
	if name == "" {
		return "", "", false
	}
	return m[1], name, true
}

// Parser pairs area level lines with the zone entry line that follows them.
// It is not safe for concurrent use.
type Parser struct {
	classifier *zone.Classifier
	now        func() time.Time

	// pendingLevel holds the most recent area level not yet attached to a
	// zone entry. A second level line before any entry replaces it.
	pendingLevel *int
}

// New creates a Parser. A nil classifier uses zone.Default().
func New(classifier *zone.Classifier) *Parser {
	if classifier == nil {
		classifier = zone.Default()
	}
	return &Parser{classifier: classifier, now: time.Now}
}

// PendingLevel returns the area level waiting for a zone entry, or nil.
func (p *Parser) PendingLevel() *int {
	if p.pendingLevel == nil {
		return nil
	}
	v := *p.pendingLevel
	return &v
}

// Reset drops any pending area level.
func (p *Parser) Reset() {
	p.pendingLevel = nil
}

// Feed processes one log line. It returns a zone change event when line is a
// zone entry, and nil otherwise.
func (p *Parser) Feed(line string) *zone.ChangeEvent {
	if level, ok := ParseAreaLevel(line); ok {
		p.pendingLevel = &level
		return nil
	}

	stamp, name, ok := ParseZoneEntry(line)
	if !ok {
		return nil
	}

	ts, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		ts = p.now()
	}

	ev := &zone.ChangeEvent{
		Timestamp: ts,
		ZoneName:  name,
		ZoneType:  p.classifier.Classify(name),
		AreaLevel: p.pendingLevel,
		RawLine:   line,
	}
	p.pendingLevel = nil
	return ev
}
