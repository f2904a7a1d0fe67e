// Package playback binds tenant queues to live players and reacts to their signals.
package playback

// State represents the playback state reported by a player.
type State int

const (
	StateIdle    State = iota // No track loaded
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// EndReason explains why a track ended.
type EndReason int

const (
	EndReasonFinished EndReason = iota // Played to the end
	EndReasonFailed                    // Engine could not play it
	EndReasonStopped                   // Stopped by a command (skip, stop)
	EndReasonReplaced                  // Another track was played over it
	EndReasonCleanup                   // Player torn down
)

// String returns the string representation of the reason.
func (r EndReason) String() string {
	switch r {
	case EndReasonFinished:
		return "finished"
	case EndReasonFailed:
		return "failed"
	case EndReasonStopped:
		return "stopped"
	case EndReasonReplaced:
		return "replaced"
	case EndReasonCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// MayAdvance reports whether the queue should move on by itself.
// Commands that end a track (skip, replace) advance on their own.
func (r EndReason) MayAdvance() bool {
	return r == EndReasonFinished || r == EndReasonFailed
}

// BreaksReplay reports whether the end must not loop the same track in replay mode.
func (r EndReason) BreaksReplay() bool {
	return r == EndReasonFailed
}
