package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/app/queue"
)

// ErrNoSession is returned when a tenant has no bound player.
var ErrNoSession = errors.New("no playback session")

// Session is a live binding between a tenant queue and a player.
type Session struct {
	mu sync.RWMutex

	ID        string
	TenantID  string
	ChannelID string
	CreatedAt time.Time

	player Player
	queue  *queue.Queue
	events queue.Emitter
	state  State

	cancel context.CancelFunc
	done   chan struct{}
}

// State returns the last playback state reported by the player.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Player returns the bound player.
func (s *Session) Player() Player {
	return s.player
}

// Queue returns the bound queue.
func (s *Session) Queue() *queue.Queue {
	return s.queue
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// run drains player events until the session is destroyed.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	events := s.player.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventTrackStarted:
		s.setState(StatePlaying)

	case EventStateChanged:
		s.setState(ev.State)

	case EventProgress:
		if err := s.queue.SetPosition(ctx, ev.Position); err != nil {
			zlog.Warn().Err(err).Str("tenant", s.TenantID).Msg("playback: failed to store position")
		}

	case EventTrackEnded:
		s.setState(StateIdle)
		s.events.Emit(queue.Event{
			Type:   queue.EventTrackEnd,
			Queue:  s.queue,
			Song:   ev.Song,
			Reason: ev.Reason.String(),
		})

		if !ev.Reason.MayAdvance() {
			zlog.Debug().Str("tenant", s.TenantID).Msgf("playback: track ended (%s), not advancing", ev.Reason)
			return
		}
		// Ended carries the song so an end that lost a race with skip is dropped
		opts := queue.AdvanceOptions{Skipped: ev.Reason.BreaksReplay(), Ended: ev.Song}
		if _, err := s.queue.Advance(ctx, opts); err != nil {
			zlog.Error().Err(err).Str("tenant", s.TenantID).Msg("playback: failed to advance queue")
		}
	}
}

// Binder owns at most one session per tenant.
type Binder struct {
	mu       sync.RWMutex
	engine   Engine
	events   queue.Emitter
	sessions map[string]*Session
}

// NewBinder creates a new binder. events may be nil.
func NewBinder(engine Engine, events queue.Emitter) *Binder {
	if events == nil {
		events = discardEmitter{}
	}
	return &Binder{
		engine:   engine,
		events:   events,
		sessions: make(map[string]*Session),
	}
}

// Player implements queue.PlayerProvider.
func (b *Binder) Player(tenantID string) (queue.Player, bool) {
	s, ok := b.Session(tenantID)
	if !ok {
		return nil, false
	}
	return s.player, true
}

// Session returns the tenant's session.
func (b *Binder) Session(tenantID string) (*Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[tenantID]
	return s, ok
}

// Require returns the tenant's session or ErrNoSession.
func (b *Binder) Require(tenantID string) (*Session, error) {
	s, ok := b.Session(tenantID)
	if !ok {
		return nil, errors.Wrapf(ErrNoSession, "tenant %s", tenantID)
	}
	return s, nil
}

// Sessions returns all live sessions.
func (b *Binder) Sessions() []*Session {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		result = append(result, s)
	}
	return result
}

// Create binds q to a new player connected to channelID.
// An existing session for the tenant is returned unchanged.
func (b *Binder) Create(ctx context.Context, q *queue.Queue, channelID string, opts ConnectOptions) (*Session, error) {
	tenantID := q.TenantID()
	if s, ok := b.Session(tenantID); ok {
		return s, nil
	}

	// Connect outside the lock
	player, err := b.engine.NewPlayer(tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create player")
	}
	if err := player.Connect(ctx, channelID, opts); err != nil {
		if derr := player.Disconnect(ctx); derr != nil {
			zlog.Warn().Err(derr).Str("tenant", tenantID).Msg("playback: failed to release player")
		}
		return nil, errors.Wrapf(err, "failed to connect to channel %s", channelID)
	}

	b.mu.Lock()
	if s, ok := b.sessions[tenantID]; ok {
		b.mu.Unlock()
		// Lost the race to a concurrent Create
		if err := player.Disconnect(ctx); err != nil {
			zlog.Warn().Err(err).Str("tenant", tenantID).Msg("playback: failed to release player")
		}
		return s, nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		ChannelID: channelID,
		CreatedAt: time.Now(),
		player:    player,
		queue:     q,
		events:    b.events,
		state:     StateIdle,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	b.sessions[tenantID] = s
	b.mu.Unlock()

	// Restore the tenant's last volume on the fresh player
	if volume, err := q.Volume(ctx); err != nil {
		zlog.Warn().Err(err).Str("tenant", tenantID).Msg("playback: failed to read stored volume")
	} else if err := player.SetVolume(ctx, volume); err != nil {
		zlog.Warn().Err(err).Str("tenant", tenantID).Msg("playback: failed to apply stored volume")
	}

	go s.run(runCtx)

	zlog.Info().Str("tenant", tenantID).Msgf("playback: session created: id=%s channel=%s", s.ID, channelID)
	return s, nil
}

// Destroy tears down the tenant's session. Destroying a missing session is a no-op.
func (b *Binder) Destroy(ctx context.Context, tenantID string) error {
	b.mu.Lock()
	s, ok := b.sessions[tenantID]
	if ok {
		delete(b.sessions, tenantID)
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}

	s.cancel()
	err := s.player.Disconnect(ctx)

	select {
	case <-s.done:
	case <-ctx.Done():
	}

	b.events.Emit(queue.Event{Type: queue.EventSessionDestroy, Queue: s.queue})
	zlog.Info().Str("tenant", tenantID).Msgf("playback: session destroyed: id=%s", s.ID)

	if err != nil {
		return errors.Wrap(err, "failed to disconnect player")
	}
	return nil
}

// Close destroys every session.
func (b *Binder) Close(ctx context.Context) {
	for _, s := range b.Sessions() {
		if err := b.Destroy(ctx, s.TenantID); err != nil {
			zlog.Warn().Err(err).Str("tenant", s.TenantID).Msg("playback: failed to destroy session")
		}
	}
}

type discardEmitter struct{}

func (discardEmitter) Emit(queue.Event) {}
