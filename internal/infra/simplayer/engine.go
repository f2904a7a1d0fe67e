// Package simplayer provides an in-process playback engine that simulates
// audio playback with wall-clock timers. It reports the same signals a real
// voice node would, which makes it usable for development and tests.
package simplayer

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/app/playback"
	"github.com/osa030/guildqueue/internal/app/queue"
	"github.com/osa030/guildqueue/internal/domain/song"
)

// Errors
var (
	ErrNotConnected = errors.New("player not connected")
	ErrNoTrack      = errors.Mark(errors.New("no track playing"), queue.ErrNothingPlaying)
	ErrClosed       = errors.New("player closed")
)

const (
	defaultProgressInterval = 5 * time.Second
	defaultResolution       = 100 * time.Millisecond
	eventBuffer             = 32
)

// Config holds simulated engine configuration.
type Config struct {
	ProgressInterval time.Duration // Interval between progress reports
	Resolution       time.Duration // Wall-clock timer polling interval
	StartDelay       time.Duration // Delay before a track is considered playing
}

// Engine creates simulated players.
type Engine struct {
	config Config
}

// NewEngine creates a new simulated engine.
func NewEngine(config Config) *Engine {
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = defaultProgressInterval
	}
	if config.Resolution <= 0 {
		config.Resolution = defaultResolution
	}
	return &Engine{config: config}
}

// NewPlayer implements playback.Engine.
func (e *Engine) NewPlayer(tenantID string) (playback.Player, error) {
	return newPlayer(tenantID, e.config), nil
}

// Player simulates a voice connection playing one track at a time.
type Player struct {
	mu sync.RWMutex

	tenantID  string
	config    Config
	channelID string
	options   playback.ConnectOptions
	connected bool
	closed    bool

	// Current track state
	current       *song.Song
	state         playback.State
	volume        int
	startTime     time.Time
	pausedAt      *time.Time
	pausedElapsed time.Duration
	generation    uint64

	timerCancel func()

	eventCh chan playback.Event
	ctx     context.Context
	cancel  context.CancelFunc
}

func newPlayer(tenantID string, config Config) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		tenantID: tenantID,
		config:   config,
		state:    playback.StateIdle,
		volume:   100,
		eventCh:  make(chan playback.Event, eventBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events implements playback.Player.
func (p *Player) Events() <-chan playback.Event {
	return p.eventCh
}

// Connect implements playback.Player.
func (p *Player) Connect(_ context.Context, channelID string, opts playback.ConnectOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.channelID = channelID
	p.options = opts
	if !p.connected {
		p.connected = true
		go p.reportProgress(p.ctx)
	}

	zlog.Debug().Str("tenant", p.tenantID).Msgf("simplayer: connected: channel=%s self_deaf=%v", channelID, opts.SelfDeaf)
	return nil
}

// Disconnect implements playback.Player.
func (p *Player) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.endLocked(playback.EndReasonCleanup)
	p.closed = true
	p.connected = false
	p.cancel()
	close(p.eventCh)

	zlog.Debug().Str("tenant", p.tenantID).Msg("simplayer: disconnected")
	return nil
}

// Play implements playback.Player. A playing track is replaced.
func (p *Player) Play(_ context.Context, s song.Song, position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkLocked(); err != nil {
		return err
	}
	p.endLocked(playback.EndReasonReplaced)

	if position < 0 || (!s.Track.IsStream() && position > s.Track.Length) {
		position = 0
	}

	played := s
	p.current = &played
	p.state = playback.StatePlaying
	p.pausedAt = nil
	p.pausedElapsed = 0
	p.startTime = toWallTime(time.Now()).Add(p.config.StartDelay).Add(-position)
	p.generation++

	p.startTrackTimerLocked()

	zlog.Debug().Str("tenant", p.tenantID).Msgf("simplayer: playing: track=%s duration=%v position=%v",
		s.Track.Title, s.Track.Length, position)
	p.sendEventLocked(playback.Event{
		Type:     playback.EventTrackStarted,
		Song:     p.current,
		Position: position,
		State:    p.state,
	})
	return nil
}

// Pause implements playback.Player.
func (p *Player) Pause(_ context.Context, paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkLocked(); err != nil {
		return err
	}
	if p.current == nil {
		return ErrNoTrack
	}

	now := toWallTime(time.Now())
	switch {
	case paused && p.state == playback.StatePlaying:
		p.cancelTimerLocked()

		// Remaining start delay counts as paused time
		if now.Before(p.startTime) {
			p.pausedElapsed += p.startTime.Sub(now)
			p.startTime = now
		}
		p.pausedAt = &now
		p.state = playback.StatePaused

	case !paused && p.state == playback.StatePaused:
		if p.pausedAt != nil {
			p.pausedElapsed += now.Sub(*p.pausedAt)
		}
		p.pausedAt = nil
		p.state = playback.StatePlaying
		p.startTrackTimerLocked()

	default:
		return nil
	}

	p.sendEventLocked(playback.Event{
		Type:     playback.EventStateChanged,
		Song:     p.current,
		Position: p.positionLocked(),
		State:    p.state,
	})
	return nil
}

// Seek implements playback.Player.
func (p *Player) Seek(_ context.Context, position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkLocked(); err != nil {
		return err
	}
	if p.current == nil {
		return ErrNoTrack
	}
	if position < 0 {
		position = 0
	}
	if !p.current.Track.IsStream() && position > p.current.Track.Length {
		position = p.current.Track.Length
	}

	now := toWallTime(time.Now())
	p.startTime = now.Add(-position)
	p.pausedElapsed = 0
	if p.state == playback.StatePaused {
		p.pausedAt = &now
		return nil
	}
	p.startTrackTimerLocked()
	return nil
}

// SetVolume implements playback.Player.
func (p *Player) SetVolume(_ context.Context, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.volume = volume
	return nil
}

// Stop implements playback.Player.
func (p *Player) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkLocked(); err != nil {
		return err
	}
	p.endLocked(playback.EndReasonStopped)
	return nil
}

// State returns the current playback state.
func (p *Player) State() playback.State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current returns the song being played.
func (p *Player) Current() (*song.Song, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil, false
	}
	return p.current, true
}

// Volume returns the applied volume.
func (p *Player) Volume() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// ChannelID returns the connected voice channel.
func (p *Player) ChannelID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.channelID
}

// Position returns the playback position of the current track.
func (p *Player) Position() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positionLocked()
}

func (p *Player) checkLocked() error {
	if p.closed {
		return ErrClosed
	}
	if !p.connected {
		return ErrNotConnected
	}
	return nil
}

func (p *Player) positionLocked() time.Duration {
	if p.current == nil {
		return 0
	}

	now := toWallTime(time.Now())
	if now.Before(p.startTime) {
		return 0
	}

	elapsed := now.Sub(p.startTime) - p.pausedElapsed
	if p.state == playback.StatePaused && p.pausedAt != nil {
		elapsed -= now.Sub(*p.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	if !p.current.Track.IsStream() && elapsed > p.current.Track.Length {
		return p.current.Track.Length
	}
	return elapsed
}

// endLocked ends the current track with reason. Must be called with lock held.
func (p *Player) endLocked(reason playback.EndReason) {
	if p.current == nil {
		return
	}
	p.cancelTimerLocked()

	ended := p.current
	position := p.positionLocked()
	p.current = nil
	p.state = playback.StateIdle
	p.pausedAt = nil
	p.pausedElapsed = 0

	zlog.Debug().Str("tenant", p.tenantID).Msgf("simplayer: track ended: track=%s reason=%s position=%v",
		ended.Track.Title, reason, position)
	p.sendEventLocked(playback.Event{
		Type:     playback.EventTrackEnded,
		Song:     ended,
		Reason:   reason,
		Position: position,
		State:    p.state,
	})
}

func (p *Player) onTrackEnd(generation uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Timer belongs to a track that was already replaced
	if p.generation != generation {
		return
	}
	p.timerCancel = nil
	p.endLocked(playback.EndReasonFinished)
}

func (p *Player) startTrackTimerLocked() {
	p.cancelTimerLocked()
	if p.current == nil || p.current.Track.IsStream() {
		return
	}

	remaining := p.current.Track.Length - p.positionLocked()
	if now := toWallTime(time.Now()); now.Before(p.startTime) {
		remaining += p.startTime.Sub(now)
	}
	generation := p.generation
	p.timerCancel = p.startWallClockTimer(remaining, func() {
		p.onTrackEnd(generation)
	})
}

func (p *Player) cancelTimerLocked() {
	if p.timerCancel != nil {
		p.timerCancel()
		p.timerCancel = nil
	}
}

func (p *Player) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(p.config.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.current != nil && p.state == playback.StatePlaying {
				p.sendEventLocked(playback.Event{
					Type:     playback.EventProgress,
					Song:     p.current,
					Position: p.positionLocked(),
					State:    p.state,
				})
			}
			p.mu.Unlock()
		}
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (p *Player) sendEventLocked(e playback.Event) {
	if p.closed {
		return
	}
	select {
	case p.eventCh <- e:
	default:
		zlog.Warn().Str("tenant", p.tenantID).Msgf("simplayer: event dropped: %s", e.Type)
	}
}

// startWallClockTimer runs callback after duration measured on the wall clock.
// Returns a cancel function.
func (p *Player) startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(p.ctx)
	endTime := toWallTime(time.Now()).Add(duration)

	go func() {
		ticker := time.NewTicker(p.config.Resolution)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(time.Now()).Before(endTime) {
					callback()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime strips the monotonic clock reading so differences follow the wall clock.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
