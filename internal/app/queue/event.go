package queue

import (
	"time"

	"github.com/osa030/guildqueue/internal/domain/song"
)

// EventType represents a queue lifecycle event type.
type EventType int

const (
	EventTrackStart     EventType = iota // Track started playing
	EventTrackReplay                     // Current track restarted in replay mode
	EventTrackEnd                        // Track ended (any reason)
	EventQueueFinish                     // Nothing left to play
	EventPause                           // Playback paused
	EventResume                          // Playback resumed
	EventVolume                          // Volume changed
	EventReplayChange                    // Replay mode toggled
	EventSeek                            // Seeked within the current track
	EventQueueAdd                        // Songs added
	EventQueueRemove                     // Song removed
	EventQueueMove                       // Song moved
	EventQueueShuffle                    // Pending list shuffled
	EventQueueClear                      // Pending list or whole family cleared
	EventSessionDestroy                  // Playback session torn down
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStart:
		return "track_start"
	case EventTrackReplay:
		return "track_replay"
	case EventTrackEnd:
		return "track_end"
	case EventQueueFinish:
		return "queue_finish"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventVolume:
		return "volume"
	case EventReplayChange:
		return "replay_change"
	case EventSeek:
		return "seek"
	case EventQueueAdd:
		return "queue_add"
	case EventQueueRemove:
		return "queue_remove"
	case EventQueueMove:
		return "queue_move"
	case EventQueueShuffle:
		return "queue_shuffle"
	case EventQueueClear:
		return "queue_clear"
	case EventSessionDestroy:
		return "session_destroy"
	default:
		return "unknown"
	}
}

// VolumeChange is the result of a volume swap.
type VolumeChange struct {
	Previous int `json:"previous"`
	Next     int `json:"next"`
}

// Event represents a queue lifecycle event.
type Event struct {
	Type     EventType
	Queue    *Queue        // Tenant queue handle
	Song     *song.Song    // Track involved (start/replay/end/remove)
	Position time.Duration // Start or seek position
	System   bool          // Pause/resume was system-initiated
	Replay   bool          // New replay mode
	Volume   VolumeChange  // Volume events
	Count    int           // Songs added
	From     int64         // Logical index (remove/move)
	To       int64         // Logical index (move)
	Hard     bool          // Clear removed the whole key family
	Reason   string        // Track end reason
}

// TenantID returns the tenant of the event's queue.
func (e Event) TenantID() string {
	if e.Queue == nil {
		return ""
	}
	return e.Queue.TenantID()
}
