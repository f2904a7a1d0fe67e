package playback

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/guildqueue/internal/app/queue"
)

// ConnectOptions controls how a player joins a voice channel.
type ConnectOptions struct {
	SelfDeaf bool   `yaml:"self_deaf" mapstructure:"self_deaf" default:"true"`
	SelfMute bool   `yaml:"self_mute" mapstructure:"self_mute"`
	Region   string `yaml:"region" mapstructure:"region" validate:"omitempty,alphanum"`
}

// Player is a live playback engine instance for one tenant.
type Player interface {
	queue.Player

	// Connect joins the voice channel.
	Connect(ctx context.Context, channelID string, opts ConnectOptions) error
	// Disconnect leaves the voice channel and releases the player.
	Disconnect(ctx context.Context) error
	// Events delivers player signals. The channel is closed on disconnect.
	Events() <-chan Event
}

// Engine creates players.
type Engine interface {
	NewPlayer(tenantID string) (Player, error)
}

// DecodeConnectOptions decodes connect settings from a config map.
func DecodeConnectOptions(settings map[string]any) (ConnectOptions, error) {
	var opts ConnectOptions

	// Set defaults first so absent settings keep them
	if err := defaults.Set(&opts); err != nil {
		return ConnectOptions{}, errors.Wrap(err, "failed to set defaults")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ConnectOptions{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return ConnectOptions{}, errors.Wrap(err, "failed to decode connect settings")
	}

	if err := validator.New().Struct(opts); err != nil {
		return ConnectOptions{}, errors.Wrap(err, "validation failed")
	}
	return opts, nil
}
