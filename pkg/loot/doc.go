// Package loot aggregates item drops into map runs and sessions.
//
// A Tracker consumes zone changes and drop batches and drives a small state
// machine:
//
//	idle -> pending -> active <-> paused -> completed
//	        pending -> paused
//
// Entering a map opens a MapRun and makes the session active. Entering the
// hideout closes the open run and pauses the session. Towns and unknown
// zones never change state, so a quick town visit does not cut a map run
// short. Drops that arrive while no run is open are collected in a closed
// "Hideout Activity" run so every drop belongs to some MapRun.
//
// A Tracker has no internal lock. Callers that feed it from several
// goroutines must serialize the calls, for example through one consumer
// goroutine reading from a channel.
package loot
