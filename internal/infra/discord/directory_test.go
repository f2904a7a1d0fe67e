package discord

import (
	"context"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildqueue/internal/app/queue"
)

type fakeREST struct {
	channels map[string]*discordgo.Channel
	err      error
	calls    int
}

func (f *fakeREST) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, &discordgo.RESTError{
		Response: &http.Response{Status: "404 Not Found", StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel, Message: "Unknown Channel"},
	}
}

func newState(t *testing.T, channels ...*discordgo.Channel) *discordgo.State {
	t.Helper()
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "guild-1"}))
	for _, ch := range channels {
		require.NoError(t, state.ChannelAdd(ch))
	}
	return state
}

func TestDirectory_StateHit(t *testing.T) {
	state := newState(t, &discordgo.Channel{ID: "text-1", Name: "music", GuildID: "guild-1", Type: discordgo.ChannelTypeGuildText})
	rest := &fakeREST{}
	d := NewDirectory(state, rest)

	ch, err := d.Channel(context.Background(), "text-1")
	require.NoError(t, err)
	assert.Equal(t, &queue.Channel{ID: "text-1", Name: "music", GuildID: "guild-1"}, ch)
	assert.Zero(t, rest.calls)
}

func TestDirectory_StateMissWithoutFallback(t *testing.T) {
	d := NewDirectory(newState(t), nil)

	_, err := d.Channel(context.Background(), "gone")
	assert.True(t, errors.Is(err, queue.ErrChannelNotFound))
}

func TestDirectory_RESTFallbackCaches(t *testing.T) {
	state := newState(t)
	rest := &fakeREST{channels: map[string]*discordgo.Channel{
		"text-2": {ID: "text-2", Name: "requests", GuildID: "guild-1", Type: discordgo.ChannelTypeGuildText},
	}}
	d := NewDirectory(state, rest)

	ch, err := d.Channel(context.Background(), "text-2")
	require.NoError(t, err)
	assert.Equal(t, "requests", ch.Name)

	_, err = d.Channel(context.Background(), "text-2")
	require.NoError(t, err)
	assert.Equal(t, 1, rest.calls)
}

func TestDirectory_RESTUnknownChannel(t *testing.T) {
	d := NewDirectory(newState(t), &fakeREST{})

	_, err := d.Channel(context.Background(), "deleted")
	assert.True(t, errors.Is(err, queue.ErrChannelNotFound))
}

func TestDirectory_RESTFailure(t *testing.T) {
	d := NewDirectory(nil, &fakeREST{err: errors.New("connection reset")})

	_, err := d.Channel(context.Background(), "text-3")
	require.Error(t, err)
	assert.False(t, errors.Is(err, queue.ErrChannelNotFound))
}
