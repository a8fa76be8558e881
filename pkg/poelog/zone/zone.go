// Package zone defines zone types, the zone classifier and the ChangeEvent
// emitted when the player enters a new area.
//
// This package is separated from the main poelog package so that the loot
// tracker can depend on zone types without pulling in the log monitor.
package zone

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Type represents the category of an in-game zone.
type Type string

const (
	// Hideout is the player's personal hideout.
	Hideout Type = "hideout"

	// Map is an endgame map or other endgame encounter area.
	Map Type = "map"

	// Town is a campaign town or other safe social area.
	Town Type = "town"

	// Campaign is a regular campaign area.
	Campaign Type = "campaign"

	// Unknown is any zone that matched no rule.
	Unknown Type = "unknown"
)

// allTypes is the canonical list of all zone types.
var allTypes = []Type{Hideout, Map, Town, Campaign, Unknown}

// TypeNames returns a sorted list of all valid zone type names.
func TypeNames() []string {
	names := make([]string, len(allTypes))
	for i, t := range allTypes {
		names[i] = string(t)
	}
	sort.Strings(names)
	return names
}

var typeByName = func() map[string]Type {
	m := make(map[string]Type, len(allTypes))
	for _, t := range allTypes {
		m[string(t)] = t
	}
	return m
}()

// ParseType converts a string to Type if valid.
// It is case-insensitive and trims leading/trailing whitespace.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	t, ok := typeByName[name]
	return t, ok
}

// ChangeEvent is produced when the client log reports a new zone.
// It is consumed immediately and never stored.
type ChangeEvent struct {
	// Timestamp is the log timestamp, or the wall clock when the log
	// timestamp could not be parsed.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// ZoneName is the area name as written in the log.
	ZoneName string `json:"zone_name" yaml:"zone_name"`

	// ZoneType is the classifier result for ZoneName.
	ZoneType Type `json:"zone_type" yaml:"zone_type"`

	// AreaLevel is the monster level announced just before the zone entry,
	// or nil when no level line preceded it.
	AreaLevel *int `json:"area_level,omitempty" yaml:"area_level,omitempty"`

	// RawLine is the original log line (only included if requested).
	RawLine string `json:"raw_line,omitempty" yaml:"raw_line,omitempty"`
}

// Rules holds the keyword lists used by a Classifier. Keywords are matched
// as case-insensitive substrings.
type Rules struct {
	Hideout []string `json:"hideout" yaml:"hideout" mapstructure:"hideout"`
	Town    []string `json:"town" yaml:"town" mapstructure:"town"`
	Map     []string `json:"map" yaml:"map" mapstructure:"map"`
}

// DefaultRules returns the built-in keyword lists.
func DefaultRules() Rules {
	return Rules{
		Hideout: []string{"hideout"},
		Town: []string{
			"lioneye's watch",
			"forest encampment",
			"sarn encampment",
			"highgate",
			"overseer's tower",
			"bridge encampment",
			"oriath docks",
			"karui shores",
			"rogue harbour",
			"kingsmarch",
			"clearfell encampment",
			"ardura caravan",
			"ziggurat encampment",
			"the refuge",
		},
		Map: []string{
			"map",
			"waystone",
			"maven's crucible",
			"the shaper's realm",
			"absence of value and meaning",
			"the alluring abyss",
			"cortex",
			"simulacrum",
			"sanctum",
			"eternal laboratory",
			"the temple of atzoatl",
			"the pinnacle of flame",
			"the burning monolith",
		},
	}
}

// Merge returns r with the keywords of extra prepended per category.
func (r Rules) Merge(extra Rules) Rules {
	return Rules{
		Hideout: concat(extra.Hideout, r.Hideout),
		Town:    concat(extra.Town, r.Town),
		Map:     concat(extra.Map, r.Map),
	}
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// campaignPattern matches generic campaign area names such as
// "The Coast" or "Act 3".
var campaignPattern = regexp.MustCompile(`(?i)^the\s|\bact\s+\d+`)

// Classifier maps zone names to zone types.
// The zero value is not usable; use NewClassifier or Default.
type Classifier struct {
	hideout []string
	town    []string
	maps    []string
}

// NewClassifier builds a classifier from the given rules.
// Keywords are lowercased and blank entries are dropped.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{
		hideout: normalize(rules.Hideout),
		town:    normalize(rules.Town),
		maps:    normalize(rules.Map),
	}
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

var defaultClassifier = NewClassifier(DefaultRules())

// Default returns the classifier built from DefaultRules.
func Default() *Classifier {
	return defaultClassifier
}

// Classify returns the zone type of name using the default rules.
func Classify(name string) Type {
	return defaultClassifier.Classify(name)
}

// Classify returns the zone type of name.
//
// Rules are checked in order and the first match wins: hideout, town, map,
// then the generic campaign pattern. Hideout and map are checked before the
// campaign pattern because several endgame areas start with "The".
func (c *Classifier) Classify(name string) Type {
	name = strings.TrimSpace(name)
	if name == "" {
		return Unknown
	}
	lower := strings.ToLower(name)

	switch {
	case containsAny(lower, c.hideout):
		return Hideout
	case containsAny(lower, c.town):
		return Town
	case containsAny(lower, c.maps):
		return Map
	case campaignPattern.MatchString(name):
		return Campaign
	}
	return Unknown
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
