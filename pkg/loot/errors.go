package loot

import "errors"

// Sentinel errors returned by Tracker methods.
var (
	// ErrAlreadyActive is returned by StartSession while a session is
	// pending, active or paused.
	ErrAlreadyActive = errors.New("session already active")

	// ErrNoActiveSession is returned when an operation needs a session and
	// none exists.
	ErrNoActiveSession = errors.New("no active session")
)
