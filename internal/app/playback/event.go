package playback

import (
	"time"

	"github.com/osa030/guildqueue/internal/domain/song"
)

// EventType represents a player event type.
type EventType int

const (
	EventTrackStarted EventType = iota // Track started playing
	EventTrackEnded                    // Track ended (see Reason)
	EventProgress                      // Periodic position report
	EventStateChanged                  // Playback state changed (pause/resume)
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventProgress:
		return "progress"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event represents a signal delivered by a player.
type Event struct {
	Type     EventType
	Song     *song.Song    // Track concerned (nil for some events)
	Reason   EndReason     // EventTrackEnded only
	Position time.Duration // EventProgress only
	State    State         // Current playback state
}
