package queue

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guildqueue/internal/domain/song"
)

// Errors
var (
	ErrNothingPlaying  = errors.New("nothing is playing")
	ErrIndexOutOfRange = errors.New("queue index out of range")
	ErrInvalidVolume   = errors.New("volume out of range")
	ErrChannelNotFound = errors.New("channel not found")
)

// Store is the key-value backing store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	GetSet(ctx context.Context, key, value string) (string, bool, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, ttl time.Duration, keys ...string) error

	LPush(ctx context.Context, key string, values ...string) (int64, error)
	PopInto(ctx context.Context, src, dst string) (string, bool, error)
	PopIntoIf(ctx context.Context, src, dst, expect string) (string, bool, bool, error)
	LIndex(ctx context.Context, key string, idx int64) (string, bool, error)
	LRemAt(ctx context.Context, key string, idx int64) (string, bool, error)
	LMove(ctx context.Context, key string, from, to int64) (bool, error)
	LShuffle(ctx context.Context, key string) error
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Player is the playback engine commands the queue issues.
type Player interface {
	Play(ctx context.Context, s song.Song, position time.Duration) error
	Pause(ctx context.Context, paused bool) error
	SetVolume(ctx context.Context, volume int) error
	Seek(ctx context.Context, position time.Duration) error
	Stop(ctx context.Context) error
}

// PlayerProvider resolves the live player bound to a tenant.
type PlayerProvider interface {
	Player(tenantID string) (Player, bool)
}

// Channel is a resolved chat channel.
type Channel struct {
	ID      string
	Name    string
	GuildID string
}

// Directory resolves stored channel identifiers. Missing channels return ErrChannelNotFound.
type Directory interface {
	Channel(ctx context.Context, id string) (*Channel, error)
}

// Emitter receives queue lifecycle events.
type Emitter interface {
	Emit(e Event)
}

type noopEmitter struct{}

func (noopEmitter) Emit(Event) {}

type noPlayers struct{}

func (noPlayers) Player(string) (Player, bool) { return nil, false }
