package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildqueue/internal/domain/song"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		settings     map[string]any
		length       time.Duration
		shouldReject bool
	}{
		{
			name:         "Within limits",
			settings:     map[string]any{"min_minutes": 2.0, "max_minutes": 5.0},
			length:       3 * time.Minute,
			shouldReject: false,
		},
		{
			name:         "Too short",
			settings:     map[string]any{"min_minutes": 3.0},
			length:       2 * time.Minute,
			shouldReject: true,
		},
		{
			name:         "Too long",
			settings:     map[string]any{"min_minutes": 1, "max_minutes": 5},
			length:       6 * time.Minute,
			shouldReject: true,
		},
		{
			name:         "Exact min",
			settings:     map[string]any{"min_minutes": 3.0},
			length:       3 * time.Minute,
			shouldReject: false,
		},
		{
			name:         "No max limit",
			settings:     map[string]any{"min_minutes": 1.0},
			length:       60 * time.Minute,
			shouldReject: false,
		},
		{
			name:         "Stream allowed by default",
			settings:     map[string]any{"min_minutes": 1.0, "max_minutes": 5.0},
			length:       0,
			shouldReject: false,
		},
		{
			name:         "Stream rejected",
			settings:     map[string]any{"allow_streams": "false"},
			length:       0,
			shouldReject: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewDurationLimitFilter()
			require.NoError(t, filter.ValidateConfig(tt.settings))

			result, err := filter.Check(context.Background(), Request{
				Song: requested(song.Track{Encoded: "enc", Title: "Song", Length: tt.length}),
			})
			require.NoError(t, err)

			if tt.shouldReject {
				assert.False(t, result.Accepted)
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			} else {
				assert.True(t, result.Accepted)
			}
		})
	}
}

func TestDurationLimitFilter_NoConfigAcceptsAll(t *testing.T) {
	result, err := NewDurationLimitFilter().Check(context.Background(), Request{
		Song: requested(song.Track{Encoded: "enc", Length: 90 * time.Minute}),
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{name: "empty", settings: nil},
		{name: "valid", settings: map[string]any{"min_minutes": 1, "max_minutes": 10}},
		{name: "min above max", settings: map[string]any{"min_minutes": 10, "max_minutes": 5}, wantErr: true},
		{name: "negative max", settings: map[string]any{"max_minutes": -1}, wantErr: true},
		{name: "wrong type", settings: map[string]any{"min_minutes": "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDurationLimitFilter().ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChain_Execute(t *testing.T) {
	duration := NewDurationLimitFilter()
	require.NoError(t, duration.ValidateConfig(map[string]any{"max_minutes": 5}))

	chain := NewChain()
	chain.Add(duration)
	chain.Add(NewDuplicateTrackFilter())
	assert.Len(t, chain.Filters(), 2)

	q := &mockQueue{pending: []song.Song{requested(song.Track{Encoded: "dup", Title: "A"})}}

	// Rejected by the first filter
	result, err := chain.Execute(context.Background(), Request{
		Queue: q,
		Song:  requested(song.Track{Encoded: "dup", Length: 10 * time.Minute}),
	})
	require.NoError(t, err)
	assert.Equal(t, "duration_limit_exceeded", result.Code)

	// Rejected by the second filter
	result, err = chain.Execute(context.Background(), Request{
		Queue: q,
		Song:  requested(song.Track{Encoded: "dup", Length: time.Minute}),
	})
	require.NoError(t, err)
	assert.Equal(t, "duplicate_track", result.Code)

	// Songs without a requester bypass both filters
	result, err = chain.Execute(context.Background(), Request{
		Queue: q,
		Song:  song.New(song.Track{Encoded: "dup", Length: 10 * time.Minute}, nil),
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestBuild(t *testing.T) {
	chain, err := Build(map[string]map[string]any{
		"duration_limit":  {"max_minutes": 10},
		"duplicate_track": nil,
	})
	require.NoError(t, err)
	require.Len(t, chain.Filters(), 2)
	assert.Equal(t, "duplicate_track", chain.Filters()[0].Name())
	assert.Equal(t, "duration_limit", chain.Filters()[1].Name())

	_, err = Build(map[string]map[string]any{"market": nil})
	assert.Error(t, err)

	_, err = Build(map[string]map[string]any{"duration_limit": {"min_minutes": 9, "max_minutes": 1}})
	assert.Error(t, err)

	assert.Contains(t, GetRegistered(), "duration_limit")
}
