package loot

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SyntheticRunName names the closed run that holds drops found while no
// map run was open.
const SyntheticRunName = "Hideout Activity"

// DefaultTopDrops is the number of drops returned by TopDrops when n <= 0.
const DefaultTopDrops = 10

// Drop is a single item found by the stash diff.
type Drop struct {
	ID          string          `json:"id"`
	ItemName    string          `json:"item_name"`
	BaseType    string          `json:"base_type,omitempty"`
	StackSize   int             `json:"stack_size"`
	ChaosValue  float64         `json:"chaos_value"`
	DivineValue float64         `json:"divine_value"`
	Rarity      Rarity          `json:"rarity"`
	ItemClass   string          `json:"item_class,omitempty"`
	DetectedAt  time.Time       `json:"detected_at"`
	SourceTab   string          `json:"source_tab,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// NewDrop returns a drop with a fresh ID, detected now.
func NewDrop(itemName string, stackSize int, chaosValue float64, rarity Rarity) Drop {
	return Drop{
		ID:         uuid.New().String(),
		ItemName:   itemName,
		StackSize:  stackSize,
		ChaosValue: chaosValue,
		Rarity:     rarity,
		DetectedAt: time.Now(),
	}
}

// TotalValue is the chaos value of the whole stack.
func (d Drop) TotalValue() float64 {
	return d.ChaosValue * float64(d.StackSize)
}

func (d Drop) clone() Drop {
	if d.Raw != nil {
		d.Raw = append(json.RawMessage(nil), d.Raw...)
	}
	return d
}

func cloneDrops(drops []Drop) []Drop {
	if drops == nil {
		return nil
	}
	out := make([]Drop, len(drops))
	for i, d := range drops {
		out[i] = d.clone()
	}
	return out
}

// MapRun is the interval between entering a map and leaving it.
type MapRun struct {
	ID        string     `json:"id"`
	MapName   string     `json:"map_name"`
	AreaLevel *int       `json:"area_level,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Drops     []Drop     `json:"drops"`
}

// IsOpen reports whether the run has not ended yet.
func (r *MapRun) IsOpen() bool {
	return r.EndedAt == nil
}

// IsSynthetic reports whether the run is a Hideout Activity carrier rather
// than a real map.
func (r *MapRun) IsSynthetic() bool {
	return r.MapName == SyntheticRunName
}

// Duration returns the run length. Open runs are measured up to now.
func (r *MapRun) Duration(now time.Time) time.Duration {
	end := now
	if r.EndedAt != nil {
		end = *r.EndedAt
	}
	if d := end.Sub(r.StartedAt); d > 0 {
		return d
	}
	return 0
}

// TotalChaosValue sums TotalValue over the run's drops.
func (r *MapRun) TotalChaosValue() float64 {
	var total float64
	for _, d := range r.Drops {
		total += d.TotalValue()
	}
	return total
}

// DropCount returns the number of drops in the run.
func (r *MapRun) DropCount() int {
	return len(r.Drops)
}

// Clone returns a deep copy of the run.
func (r *MapRun) Clone() *MapRun {
	c := *r
	if r.AreaLevel != nil {
		lvl := *r.AreaLevel
		c.AreaLevel = &lvl
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	c.Drops = cloneDrops(r.Drops)
	return &c
}

// Session is the top-level tracking unit. MapRuns only ever holds closed
// runs; the open run is owned by the Tracker until it closes.
type Session struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	League       string     `json:"league"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	State        State      `json:"state"`
	MapRuns      []MapRun   `json:"map_runs"`
	AutoDetected bool       `json:"auto_detected"`
	Notes        string     `json:"notes,omitempty"`
}

// Duration returns the session length. Sessions that have not ended are
// measured up to now.
func (s *Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if d := end.Sub(s.StartedAt); d > 0 {
		return d
	}
	return 0
}

// TotalMaps counts real map runs. Hideout Activity runs are not maps.
func (s *Session) TotalMaps() int {
	n := 0
	for i := range s.MapRuns {
		if !s.MapRuns[i].IsSynthetic() {
			n++
		}
	}
	return n
}

// TotalDrops counts drops across all runs, synthetic ones included.
func (s *Session) TotalDrops() int {
	n := 0
	for i := range s.MapRuns {
		n += s.MapRuns[i].DropCount()
	}
	return n
}

// TotalChaosValue sums the value of all runs, synthetic ones included.
func (s *Session) TotalChaosValue() float64 {
	var total float64
	for i := range s.MapRuns {
		total += s.MapRuns[i].TotalChaosValue()
	}
	return total
}

// ChaosPerHour returns TotalChaosValue divided by the session duration in
// hours, or 0 for an empty duration.
func (s *Session) ChaosPerHour(now time.Time) float64 {
	hours := s.Duration(now).Hours()
	if hours <= 0 {
		return 0
	}
	return s.TotalChaosValue() / hours
}

// MapsPerHour returns TotalMaps divided by the session duration in hours.
func (s *Session) MapsPerHour(now time.Time) float64 {
	hours := s.Duration(now).Hours()
	if hours <= 0 {
		return 0
	}
	return float64(s.TotalMaps()) / hours
}

// AvgMapTime is the mean duration of the real map runs.
func (s *Session) AvgMapTime() time.Duration {
	var total time.Duration
	n := 0
	for i := range s.MapRuns {
		r := &s.MapRuns[i]
		if r.IsSynthetic() || r.EndedAt == nil {
			continue
		}
		total += r.Duration(*r.EndedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// AvgChaosPerMap is the mean value of the real map runs.
func (s *Session) AvgChaosPerMap() float64 {
	var total float64
	n := 0
	for i := range s.MapRuns {
		r := &s.MapRuns[i]
		if r.IsSynthetic() {
			continue
		}
		total += r.TotalChaosValue()
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// TopDrops returns the n most valuable drops across all runs, by
// TotalValue descending. Ties keep detection order. n <= 0 means
// DefaultTopDrops.
func (s *Session) TopDrops(n int) []Drop {
	if n <= 0 {
		n = DefaultTopDrops
	}
	var all []Drop
	for i := range s.MapRuns {
		all = append(all, s.MapRuns[i].Drops...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].TotalValue() > all[j].TotalValue()
	})
	if len(all) > n {
		all = all[:n]
	}
	return cloneDrops(all)
}

// DropsByRarity counts drops per rarity.
func (s *Session) DropsByRarity() map[Rarity]int {
	counts := make(map[Rarity]int)
	for i := range s.MapRuns {
		for _, d := range s.MapRuns[i].Drops {
			counts[d.Rarity]++
		}
	}
	return counts
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	if s.MapRuns != nil {
		c.MapRuns = make([]MapRun, len(s.MapRuns))
		for i := range s.MapRuns {
			c.MapRuns[i] = *s.MapRuns[i].Clone()
		}
	}
	return &c
}
