// Package discord resolves text channels through a Discord bot session.
package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/app/queue"
)

// ChannelFetcher fetches a channel over the REST API.
type ChannelFetcher interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Directory implements queue.Directory over the gateway state cache,
// falling back to REST when a fetcher is configured.
type Directory struct {
	state *discordgo.State
	rest  ChannelFetcher
}

// NewDirectory creates a directory. rest may be nil to disable the fallback.
func NewDirectory(state *discordgo.State, rest ChannelFetcher) *Directory {
	return &Directory{state: state, rest: rest}
}

// Open connects a bot session to the gateway and returns it with its directory.
func Open(token string, restFallback bool) (*discordgo.Session, *Directory, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds
	dg.StateEnabled = true

	if err := dg.Open(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to open discord session")
	}

	var rest ChannelFetcher
	if restFallback {
		rest = dg
	}
	zlog.Info().Msgf("discord: session opened (rest_fallback=%v)", restFallback)
	return dg, NewDirectory(dg.State, rest), nil
}

// Channel implements queue.Directory.
func (d *Directory) Channel(ctx context.Context, id string) (*queue.Channel, error) {
	if d.state != nil {
		if ch, err := d.state.Channel(id); err == nil {
			return toChannel(ch), nil
		} else if !errors.Is(err, discordgo.ErrStateNotFound) {
			zlog.Warn().Err(err).Msgf("discord: state lookup failed: channel=%s", id)
		}
	}

	if d.rest == nil {
		return nil, errors.Wrapf(queue.ErrChannelNotFound, "channel %s", id)
	}

	ch, err := d.rest.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownChannel(err) {
			return nil, errors.Wrapf(queue.ErrChannelNotFound, "channel %s", id)
		}
		return nil, errors.Wrapf(err, "failed to fetch channel %s", id)
	}

	// Keep the cache warm for the next lookup
	if d.state != nil {
		if err := d.state.ChannelAdd(ch); err != nil {
			zlog.Debug().Err(err).Msgf("discord: channel not cached: channel=%s", id)
		}
	}
	return toChannel(ch), nil
}

func isUnknownChannel(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	return restErr.Message.Code == discordgo.ErrCodeUnknownChannel
}

func toChannel(ch *discordgo.Channel) *queue.Channel {
	return &queue.Channel{
		ID:      ch.ID,
		Name:    ch.Name,
		GuildID: ch.GuildID,
	}
}
