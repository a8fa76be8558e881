package poelog

import "github.com/poelog/poelog-go/pkg/poelog/zone"

// Re-export zone types for convenience.
// Users can import just "github.com/poelog/poelog-go/pkg/poelog"
// and use poelog.ChangeEvent, poelog.ZoneMap, etc.

// ChangeEvent is emitted when the player enters a new zone.
type ChangeEvent = zone.ChangeEvent

// ZoneType is the category of a zone.
type ZoneType = zone.Type

// Zone type constants.
const (
	ZoneHideout  = zone.Hideout
	ZoneMap      = zone.Map
	ZoneTown     = zone.Town
	ZoneCampaign = zone.Campaign
	ZoneUnknown  = zone.Unknown
)

// FollowMode selects how the monitor notices new log content.
type FollowMode string

const (
	// FollowPoll stats the file every poll interval and reads from a
	// tracked byte offset. This is the default.
	FollowPoll FollowMode = "poll"

	// FollowNotify uses filesystem notifications via nxadm/tail.
	FollowNotify FollowMode = "notify"
)

// ParseFollowMode converts a string to a FollowMode.
func ParseFollowMode(s string) (FollowMode, bool) {
	switch FollowMode(s) {
	case FollowPoll, "":
		return FollowPoll, true
	case FollowNotify:
		return FollowNotify, true
	}
	return "", false
}
