package loot

import "time"

// SessionStats is a live snapshot of the current session. The open map
// run, if any, is included in the totals. Duration-based figures are
// computed at the time of the call.
type SessionStats struct {
	Active       bool   `json:"active" yaml:"active"`
	SessionID    string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	League       string `json:"league,omitempty" yaml:"league,omitempty"`
	State        State  `json:"state" yaml:"state"`
	AutoDetected bool   `json:"auto_detected" yaml:"auto_detected"`

	StartedAt time.Time     `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	TotalMaps       int     `json:"total_maps" yaml:"total_maps"`
	TotalDrops      int     `json:"total_drops" yaml:"total_drops"`
	TotalChaosValue float64 `json:"total_chaos_value" yaml:"total_chaos_value"`
	ChaosPerHour    float64 `json:"chaos_per_hour" yaml:"chaos_per_hour"`
	MapsPerHour     float64 `json:"maps_per_hour" yaml:"maps_per_hour"`

	AvgMapTime     time.Duration `json:"avg_map_time" yaml:"avg_map_time"`
	AvgChaosPerMap float64       `json:"avg_chaos_per_map" yaml:"avg_chaos_per_map"`

	TopDrops      []Drop         `json:"top_drops,omitempty" yaml:"top_drops,omitempty"`
	DropsByRarity map[Rarity]int `json:"drops_by_rarity,omitempty" yaml:"drops_by_rarity,omitempty"`

	CurrentMap      string        `json:"current_map,omitempty" yaml:"current_map,omitempty"`
	CurrentMapTime  time.Duration `json:"current_map_time,omitempty" yaml:"current_map_time,omitempty"`
	CurrentMapDrops int           `json:"current_map_drops,omitempty" yaml:"current_map_drops,omitempty"`
}

// Summarize computes the statistics of s as of now. It does not mark the
// result Active; use Tracker.SessionStats for live sessions.
func Summarize(s *Session, now time.Time) SessionStats {
	return SessionStats{
		SessionID:       s.ID,
		Name:            s.Name,
		League:          s.League,
		State:           s.State,
		AutoDetected:    s.AutoDetected,
		StartedAt:       s.StartedAt,
		Duration:        s.Duration(now),
		TotalMaps:       s.TotalMaps(),
		TotalDrops:      s.TotalDrops(),
		TotalChaosValue: s.TotalChaosValue(),
		ChaosPerHour:    s.ChaosPerHour(now),
		MapsPerHour:     s.MapsPerHour(now),
		AvgMapTime:      s.AvgMapTime(),
		AvgChaosPerMap:  s.AvgChaosPerMap(),
		TopDrops:        s.TopDrops(DefaultTopDrops),
		DropsByRarity:   s.DropsByRarity(),
	}
}

// SessionStats returns a live snapshot of the current session, or a zero
// SessionStats with Active false when there is none.
func (t *Tracker) SessionStats() SessionStats {
	if t.session == nil {
		return SessionStats{State: StateIdle}
	}

	now := t.cfg.now()
	live := t.session.Clone()
	if t.currentRun != nil {
		// Close the copy at now so averages include the run in progress.
		run := t.currentRun.Clone()
		run.EndedAt = &now
		live.MapRuns = append(live.MapRuns, *run)
	}

	st := Summarize(live, now)
	st.Active = true
	if t.currentRun != nil {
		st.CurrentMap = t.currentRun.MapName
		st.CurrentMapTime = t.currentRun.Duration(now)
		st.CurrentMapDrops = t.currentRun.DropCount()
	}
	return st
}
