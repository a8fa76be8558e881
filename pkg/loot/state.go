package loot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State is the lifecycle state of a session.
type State int

const (
	// StateIdle means no session exists. A Session value never carries it.
	StateIdle State = iota
	StatePending
	StateActive
	StatePaused
	StateCompleted
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StatePending:   "pending",
	StateActive:    "active",
	StatePaused:    "paused",
	StateCompleted: "completed",
}

var stateFromName = map[string]State{
	"idle":      StateIdle,
	"pending":   StatePending,
	"active":    StateActive,
	"paused":    StatePaused,
	"completed": StateCompleted,
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted
}

// IsLive reports whether s counts as a running session.
func (s State) IsLive() bool {
	return s == StatePending || s == StateActive || s == StatePaused
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := stateFromName[name]
	if !ok {
		return fmt.Errorf("unknown session state %q", name)
	}
	*s = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s State) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Rarity is the item rarity reported by the stash diff.
type Rarity string

const (
	RarityNormal     Rarity = "normal"
	RarityMagic      Rarity = "magic"
	RarityRare       Rarity = "rare"
	RarityUnique     Rarity = "unique"
	RarityCurrency   Rarity = "currency"
	RarityGem        Rarity = "gem"
	RarityDivination Rarity = "divination"
	RarityOther      Rarity = "other"
)

// ParseRarity converts a string to Rarity. Unrecognized values map to
// RarityOther.
func ParseRarity(s string) Rarity {
	switch r := Rarity(strings.ToLower(strings.TrimSpace(s))); r {
	case RarityNormal, RarityMagic, RarityRare, RarityUnique,
		RarityCurrency, RarityGem, RarityDivination:
		return r
	}
	return RarityOther
}
