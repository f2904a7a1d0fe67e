// Package notification provides the notification manager for broadcasting queue events.
package notification

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/app/queue"
)

const defaultSendTimeout = 500 * time.Millisecond

// Handler receives a queue event.
type Handler func(ctx context.Context, e queue.Event)

// subscription represents a subscriber's subscription.
type subscription struct {
	id      string
	handler Handler
	types   []queue.EventType // empty = all
}

func (s *subscription) wants(t queue.EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Manager manages event subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager. A zero timeout uses the default.
func NewManager(sendTimeout time.Duration) *Manager {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   sendTimeout,
	}
}

// Subscribe registers handler for the given event types (all when none) and returns the subscription ID.
func (m *Manager) Subscribe(handler Handler, types ...queue.EventType) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:      id,
		handler: handler,
		types:   types,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// SequenceNo returns the sequence number of the last broadcast event.
func (m *Manager) SequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	return m.sequenceNo
}

// Emit implements queue.Emitter.
func (m *Manager) Emit(e queue.Event) {
	m.Broadcast(e)
}

// Broadcast delivers an event to every matching subscriber.
// Each handler runs in its own goroutine with a timeout so a slow subscriber cannot block the queue.
func (m *Manager) Broadcast(e queue.Event) uint64 {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	seq := m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.wants(e.Type) {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				defer func() {
					if r := recover(); r != nil {
						zlog.Error().Msgf("notification: subscriber %s panicked: %v", s.id, r)
					}
				}()
				s.handler(ctx, e)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				zlog.Warn().Msgf("notification: subscriber %s timed out on %s (seq=%d)", s.id, e.Type, seq)
			}
		}(sub)
	}

	wg.Wait()
	return seq
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
