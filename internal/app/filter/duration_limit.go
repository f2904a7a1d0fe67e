package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/domain/song"
)

// DurationLimitConfig represents the configuration for DurationLimitFilter.
type DurationLimitConfig struct {
	MinMinutes   float64 `yaml:"min_minutes" mapstructure:"min_minutes" validate:"gte=0"`
	MaxMinutes   float64 `yaml:"max_minutes" mapstructure:"max_minutes" validate:"gte=0"`
	AllowStreams bool    `yaml:"allow_streams" mapstructure:"allow_streams" default:"true"`
}

// DurationLimitFilter checks if song length is within allowed limits.
type DurationLimitFilter struct {
	config *DurationLimitConfig
}

// NewDurationLimitFilter creates a new duration limit filter.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit"
}

func (f *DurationLimitFilter) Description() string {
	return "Checks if song length is within allowed limits"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{"duration_limit_exceeded"}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig

	// Set defaults first so absent settings keep them
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	// Decode map[string]any to struct using mapstructure
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	// Validate using validator
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	// min_minutes cannot be greater than max_minutes (0 means no limit)
	if config.MaxMinutes > 0 && config.MinMinutes > config.MaxMinutes {
		return errors.New("min_minutes cannot be greater than max_minutes")
	}
	f.config = &config
	zlog.Info().Msgf("duration limit filter config: %+v", config)
	return nil
}

func (f *DurationLimitFilter) AppliesTo(s song.Song) bool {
	// Apply to requested songs only
	return s.Requester != nil
}

func (f *DurationLimitFilter) Check(_ context.Context, req Request) (Result, error) {
	// If config is not set, accept all songs
	if f.config == nil {
		return Accept(), nil
	}

	if req.Song.Track.IsStream() {
		if f.config.AllowStreams {
			return Accept(), nil
		}
		return Reject("duration_limit_exceeded"), nil
	}

	minutes := req.Song.Track.Length.Minutes()
	if minutes < f.config.MinMinutes {
		return Reject("duration_limit_exceeded"), nil
	}
	if f.config.MaxMinutes > 0 && minutes > f.config.MaxMinutes {
		return Reject("duration_limit_exceeded"), nil
	}

	return Accept(), nil
}

func init() {
	Register("duration_limit", func() Filter {
		return NewDurationLimitFilter()
	})
}
