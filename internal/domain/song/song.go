// Package song provides the Song domain entity and its storage codec.
package song

import "time"

// Track is the raw track reference handed to the playback engine.
type Track struct {
	Encoded string        // Opaque engine reference
	Title   string        // Track title
	Author  string        // Artist or uploader
	URI     string        // Source URI
	Length  time.Duration // Track length (0 for streams or unknown)
}

// IsStream reports whether the track has no known length.
func (t Track) IsStream() bool {
	return t.Length <= 0
}

// Requester represents the user who queued the song.
type Requester struct {
	ID        string // Platform user ID
	Name      string // Display name
	AvatarURL string // Avatar URL (optional)
}

// Song is an immutable queued track. Stored songs keep AddedAt and
// Track.Length to the millisecond with AddedAt in UTC; Normalize yields that form.
type Song struct {
	Track     Track      // Track reference
	AddedAt   time.Time  // Time when added to queue (UTC, millisecond precision)
	Requester *Requester // Requester info (nil when unknown)
}

// New creates a song enqueued now.
func New(t Track, requester *Requester) Song {
	return Song{
		Track:     t,
		AddedAt:   Timestamp(time.Now()),
		Requester: requester,
	}
}

// WithRequester returns a copy of s carrying r.
func (s Song) WithRequester(r *Requester) Song {
	if r != nil {
		cp := *r
		r = &cp
	}
	s.Requester = r
	return s
}

// Timestamp normalizes t to the precision kept in storage.
func Timestamp(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

// Normalize returns s reduced to the precision kept in storage.
func (s Song) Normalize() Song {
	s.AddedAt = Timestamp(s.AddedAt)
	s.Track.Length = s.Track.Length.Truncate(time.Millisecond)
	return s
}
