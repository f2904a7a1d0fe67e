package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guildqueue/internal/app/queue"
	"github.com/osa030/guildqueue/internal/domain/song"
)

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*\(official.*?\)`),       // "(Official Video)"
		regexp.MustCompile(`\s*\[official.*?\]`),       // "[Official Audio]"
		regexp.MustCompile(`\s*-?\s*live`),             // "- Live"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	whitespace = regexp.MustCompile(`\s+`)
)

// DuplicateTrackFilter rejects songs already current or pending in the queue.
// Detects:
// - Same engine reference or URI
// - Remasters (normalized title + same author)
// Excludes:
// - Cover songs (same title but different author)
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects songs already in the queue (remasters included); covers are allowed"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// AppliesTo returns true for requested songs only.
func (f *DuplicateTrackFilter) AppliesTo(s song.Song) bool {
	return s.Requester != nil
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the song is a duplicate.
func (f *DuplicateTrackFilter) Check(ctx context.Context, req Request) (Result, error) {
	if req.Queue == nil {
		return Accept(), nil
	}

	pending, err := req.Queue.Tracks(ctx, 0, queue.TracksEnd)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to read pending songs")
	}
	nowPlaying, err := req.Queue.NowPlaying(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to read current song")
	}
	if nowPlaying != nil {
		pending = append(pending, nowPlaying.Song)
	}

	for _, queued := range pending {
		if isSameTrack(queued.Track, req.Song.Track) || isRemaster(queued.Track, req.Song.Track) {
			return Reject("duplicate_track"), nil
		}
	}

	return Accept(), nil
}

// isSameTrack checks for the same engine reference or URI.
func isSameTrack(a, b song.Track) bool {
	if a.Encoded == b.Encoded {
		return true
	}
	return a.URI != "" && a.URI == b.URI
}

// isRemaster checks if two tracks are the same song in a different version.
func isRemaster(a, b song.Track) bool {
	if normalizeTitle(a.Title) != normalizeTitle(b.Title) {
		return false
	}

	// Same normalized title by a different author is a cover
	if a.Author == "" || b.Author == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Author), strings.TrimSpace(b.Author))
}

// normalizeTitle removes remaster information and version details.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = whitespace.ReplaceAllString(normalized, " ")

	// Remove trailing dashes
	return strings.TrimRight(normalized, " -")
}

func init() {
	Register("duplicate_track", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
