// Package queue provides the per-tenant queue state machine backed by an external store.
package queue

import "time"

const (
	DefaultKeyPrefix = "guildqueue"
	DefaultRetention = 48 * time.Hour
	DefaultVolume    = 100
	MaxVolume        = 1000
)

// Config holds queue configuration.
type Config struct {
	KeyPrefix string        // Namespace prefix for every key family
	Retention time.Duration // TTL re-armed on every mutation
}

// Manager hands out queue handles sharing one store, player provider and event sink.
type Manager struct {
	config    Config
	store     Store
	players   PlayerProvider
	events    Emitter
	directory Directory
}

// NewManager creates a new queue manager. players, events and directory may be nil.
func NewManager(config Config, store Store, players PlayerProvider, events Emitter, directory Directory) *Manager {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	if players == nil {
		players = noPlayers{}
	}
	if events == nil {
		events = noopEmitter{}
	}
	return &Manager{
		config:    config,
		store:     store,
		players:   players,
		events:    events,
		directory: directory,
	}
}

// Get returns the queue handle for tenantID. Handles are cheap and stateless.
func (m *Manager) Get(tenantID string) *Queue {
	return &Queue{
		tenantID: tenantID,
		keys:     NewKeys(m.config.KeyPrefix, tenantID),
		m:        m,
	}
}
