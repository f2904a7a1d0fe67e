// Package filter provides the admission filter chain for songs added to a queue.
package filter

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guildqueue/internal/app/queue"
	"github.com/osa030/guildqueue/internal/domain/song"
)

// QueueReader is the read side of a tenant queue used by filters.
type QueueReader interface {
	NowPlaying(ctx context.Context) (*queue.NowPlaying, error)
	Tracks(ctx context.Context, start, end int64) ([]song.Song, error)
}

// Request represents a song about to be added to a queue.
type Request struct {
	Queue QueueReader
	Song  song.Song
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "duplicate_track", "duration_limit_exceeded"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for admission filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should be applied to the song.
	AppliesTo(s song.Song) bool
	// Check performs the filter check.
	Check(ctx context.Context, req Request) (Result, error)
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

// Build creates a chain from enabled filter settings keyed by filter name.
// Filters run in name order.
func Build(enabled map[string]map[string]any) (*Chain, error) {
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	slices.Sort(names)

	chain := NewChain()
	for _, name := range names {
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		f := factory()
		if err := f.ValidateConfig(enabled[name]); err != nil {
			return nil, errors.Wrapf(err, "invalid config for filter %s", name)
		}
		chain.Add(f)
	}
	return chain, nil
}
