package notification

import (
	"context"
	"encoding/json"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/app/queue"
)

// Publisher publishes a message on a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// Message is the wire form of a relayed event.
type Message struct {
	Type     string              `json:"type"`
	Tenant   string              `json:"tenant"`
	Track    *MessageTrack       `json:"track,omitempty"`
	Position int64               `json:"position,omitempty"` // milliseconds
	System   bool                `json:"system,omitempty"`
	Replay   bool                `json:"replay,omitempty"`
	Volume   *queue.VolumeChange `json:"volume,omitempty"`
	Count    int                 `json:"count,omitempty"`
	From     int64               `json:"from,omitempty"`
	To       int64               `json:"to,omitempty"`
	Hard     bool                `json:"hard,omitempty"`
	Reason   string              `json:"reason,omitempty"`
	Time     time.Time           `json:"time"`
}

// MessageTrack is the track summary carried by a message.
type MessageTrack struct {
	Title       string `json:"title"`
	URI         string `json:"uri,omitempty"`
	RequesterID string `json:"requesterId,omitempty"`
}

// Relay forwards events to other workers over Redis pub/sub.
type Relay struct {
	pub     Publisher
	channel string
}

// NewRelay creates a relay publishing on channel.
func NewRelay(pub Publisher, channel string) *Relay {
	return &Relay{pub: pub, channel: channel}
}

// Attach subscribes the relay to m and returns the subscription ID.
func (r *Relay) Attach(m *Manager) string {
	return m.Subscribe(r.Handle)
}

// Handle publishes one event. Failures are logged.
func (r *Relay) Handle(ctx context.Context, e queue.Event) {
	data, err := json.Marshal(NewMessage(e))
	if err != nil {
		zlog.Error().Err(err).Msg("relay: failed to encode event")
		return
	}
	if err := r.pub.Publish(ctx, r.channel, string(data)); err != nil {
		zlog.Warn().Err(err).Str("tenant", e.TenantID()).Msgf("relay: failed to publish %s", e.Type)
	}
}

// NewMessage converts an event to its wire form.
func NewMessage(e queue.Event) Message {
	msg := Message{
		Type:     e.Type.String(),
		Tenant:   e.TenantID(),
		Position: e.Position.Milliseconds(),
		System:   e.System,
		Replay:   e.Replay,
		Count:    e.Count,
		From:     e.From,
		To:       e.To,
		Hard:     e.Hard,
		Reason:   e.Reason,
		Time:     time.Now().UTC(),
	}
	if e.Type == queue.EventVolume {
		v := e.Volume
		msg.Volume = &v
	}
	if e.Song != nil {
		msg.Track = &MessageTrack{
			Title: e.Song.Track.Title,
			URI:   e.Song.Track.URI,
		}
		if e.Song.Requester != nil {
			msg.Track.RequesterID = e.Song.Requester.ID
		}
	}
	return msg
}
