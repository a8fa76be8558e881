package loot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/poelog/poelog-go/pkg/poelog/zone"
)

// Tracker owns the current session and its open map run.
// It is not safe for concurrent use.
type Tracker struct {
	cfg *trackerConfig

	session      *Session
	currentRun   *MapRun
	autoTracking bool
}

// NewTracker creates an idle tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	cfg := applyTrackerOptions(opts)
	return &Tracker{
		cfg:          cfg,
		autoTracking: cfg.autoTracking,
	}
}

// StartSession creates a pending session. An empty name becomes
// "Session YYYY-MM-DD HH:MM". It fails with ErrAlreadyActive if a session
// already exists.
func (t *Tracker) StartSession(name string, autoDetected bool) (*Session, error) {
	if t.session != nil {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyActive, t.session.Name)
	}

	now := t.cfg.now()
	if name == "" {
		name = "Session " + now.Format("2006-01-02 15:04")
	}

	t.session = &Session{
		ID:           uuid.New().String(),
		Name:         name,
		League:       t.cfg.league,
		StartedAt:    now,
		State:        StatePending,
		MapRuns:      []MapRun{},
		AutoDetected: autoDetected,
	}

	t.cfg.logger.Info("session started",
		"session_id", t.session.ID, "name", name, "league", t.session.League, "auto", autoDetected)

	t.notifyStateChange(StateIdle, StatePending)
	if fn := t.cfg.callbacks.OnSessionStart; fn != nil {
		s := t.session.Clone()
		t.invoke("on_session_start", func() { fn(s) })
	}
	return t.session.Clone(), nil
}

// EndSession closes any open run, completes the session and hands it to
// the caller. The tracker forgets the session afterwards.
func (t *Tracker) EndSession() (*Session, error) {
	if t.session == nil {
		return nil, ErrNoActiveSession
	}

	t.closeMapRun()

	s := t.session
	old := s.State
	ended := t.cfg.now()
	s.EndedAt = &ended
	s.State = StateCompleted
	t.session = nil

	t.cfg.logger.Info("session ended",
		"session_id", s.ID, "maps", s.TotalMaps(), "drops", s.TotalDrops(), "chaos", s.TotalChaosValue())

	t.notifyStateChange(old, StateCompleted)
	if fn := t.cfg.callbacks.OnSessionEnd; fn != nil {
		t.invoke("on_session_end", func() { fn(s) })
	}
	return s, nil
}

// OnZoneEntered applies a zone change.
//
// With no session, a map entry starts one when auto tracking is enabled;
// anything else is ignored. A map entry closes the open run and opens a new
// one. A hideout entry closes the open run and pauses the session. Town and
// unknown zones are no-ops.
func (t *Tracker) OnZoneEntered(name string, zt zone.Type, areaLevel *int) {
	if t.session == nil {
		if !t.autoTracking || zt != zone.Map {
			t.cfg.logger.Debug("zone ignored; no session", "zone", name, "zone_type", zt)
			return
		}
		if _, err := t.StartSession("", true); err != nil {
			t.cfg.logger.Error("auto-starting session failed", "err", err)
			return
		}
	}

	switch zt {
	case zone.Map:
		t.closeMapRun()
		t.openMapRun(name, areaLevel)
		t.setState(StateActive)
	case zone.Hideout:
		t.closeMapRun()
		t.setState(StatePaused)
	default:
		t.cfg.logger.Debug("zone does not change state", "zone", name, "zone_type", zt)
	}
}

// HandleZoneChange is OnZoneEntered for a ChangeEvent.
func (t *Tracker) HandleZoneChange(ev zone.ChangeEvent) {
	t.OnZoneEntered(ev.ZoneName, ev.ZoneType, ev.AreaLevel)
}

// AddDrops records a batch of drops.
//
// Drops go to the open map run. With a session but no open run they are
// stored in a closed Hideout Activity run. With no session they are
// discarded. OnDropsDetected fires in every case except an empty batch.
// Missing IDs and detection times are filled in.
func (t *Tracker) AddDrops(drops []Drop) {
	if len(drops) == 0 {
		return
	}

	now := t.cfg.now()
	batch := make([]Drop, len(drops))
	for i, d := range drops {
		d = d.clone()
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if d.DetectedAt.IsZero() {
			d.DetectedAt = now
		}
		batch[i] = d
	}

	switch {
	case t.currentRun != nil:
		t.currentRun.Drops = append(t.currentRun.Drops, batch...)
		t.cfg.logger.Debug("drops added to map run",
			"run_id", t.currentRun.ID, "count", len(batch))
	case t.session != nil:
		ended := now
		run := MapRun{
			ID:        uuid.New().String(),
			MapName:   SyntheticRunName,
			StartedAt: now,
			EndedAt:   &ended,
			Drops:     cloneDrops(batch),
		}
		t.session.MapRuns = append(t.session.MapRuns, run)
		t.cfg.logger.Debug("drops added to hideout activity",
			"session_id", t.session.ID, "run_id", run.ID, "count", len(batch))
	default:
		t.cfg.logger.Warn("drops discarded; no active session", "count", len(batch))
	}

	if fn := t.cfg.callbacks.OnDropsDetected; fn != nil {
		cp := cloneDrops(batch)
		t.invoke("on_drops_detected", func() { fn(cp) })
	}
}

// EnableAutoTracking turns map-triggered session start on or off.
func (t *Tracker) EnableAutoTracking(enabled bool) {
	t.autoTracking = enabled
}

// AutoTrackingEnabled reports whether map-triggered session start is on.
func (t *Tracker) AutoTrackingEnabled() bool {
	return t.autoTracking
}

// State returns the current session state, or StateIdle.
func (t *Tracker) State() State {
	if t.session == nil {
		return StateIdle
	}
	return t.session.State
}

// CurrentSession returns a copy of the current session, or nil.
func (t *Tracker) CurrentSession() *Session {
	if t.session == nil {
		return nil
	}
	return t.session.Clone()
}

// CurrentMapRun returns a copy of the open map run, or nil.
func (t *Tracker) CurrentMapRun() *MapRun {
	if t.currentRun == nil {
		return nil
	}
	return t.currentRun.Clone()
}

// SetNotes replaces the notes of the current session.
func (t *Tracker) SetNotes(notes string) error {
	if t.session == nil {
		return ErrNoActiveSession
	}
	t.session.Notes = notes
	return nil
}

func (t *Tracker) openMapRun(name string, areaLevel *int) {
	run := &MapRun{
		ID:        uuid.New().String(),
		MapName:   name,
		StartedAt: t.cfg.now(),
		Drops:     []Drop{},
	}
	if areaLevel != nil {
		lvl := *areaLevel
		run.AreaLevel = &lvl
	}
	t.currentRun = run
	t.cfg.logger.Info("map run started",
		"session_id", t.session.ID, "run_id", run.ID, "zone", name, "area_level", levelAttr(areaLevel))
}

// closeMapRun ends the open run, if any, and moves it into the session.
func (t *Tracker) closeMapRun() {
	run := t.currentRun
	if run == nil {
		return
	}
	t.currentRun = nil

	ended := t.cfg.now()
	run.EndedAt = &ended
	t.session.MapRuns = append(t.session.MapRuns, *run)

	t.cfg.logger.Info("map run completed",
		"session_id", t.session.ID, "run_id", run.ID, "zone", run.MapName,
		"duration", run.Duration(ended), "drops", run.DropCount(), "chaos", run.TotalChaosValue())

	if fn := t.cfg.callbacks.OnMapComplete; fn != nil {
		cp := run.Clone()
		t.invoke("on_map_complete", func() { fn(cp) })
	}
}

func (t *Tracker) setState(s State) {
	old := t.session.State
	if old == s {
		return
	}
	t.session.State = s
	t.notifyStateChange(old, s)
}

func (t *Tracker) notifyStateChange(old, s State) {
	t.cfg.logger.Debug("session state changed", "from", old, "to", s)
	if fn := t.cfg.callbacks.OnStateChange; fn != nil {
		t.invoke("on_state_change", func() { fn(old, s) })
	}
}

// invoke runs a caller callback, recovering and logging any panic.
func (t *Tracker) invoke(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.cfg.logger.Error("callback panicked", "callback", name, "err", fmt.Sprint(r))
		}
	}()
	fn()
}

func levelAttr(level *int) any {
	if level == nil {
		return nil
	}
	return *level
}
