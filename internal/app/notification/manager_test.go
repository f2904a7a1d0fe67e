package notification

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildqueue/internal/app/queue"
	"github.com/osa030/guildqueue/internal/domain/song"
	"github.com/osa030/guildqueue/internal/infra/redisstore"
)

type collector struct {
	mu     sync.Mutex
	events []queue.Event
}

func (c *collector) handle(_ context.Context, e queue.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestManager_SubscribeBroadcast(t *testing.T) {
	m := NewManager(0)
	all := &collector{}
	pauses := &collector{}

	m.Subscribe(all.handle)
	m.Subscribe(pauses.handle, queue.EventPause, queue.EventResume)
	assert.Equal(t, 2, m.SubscriberCount())

	seq := m.Broadcast(queue.Event{Type: queue.EventTrackStart})
	assert.Equal(t, uint64(1), seq)
	m.Emit(queue.Event{Type: queue.EventPause, System: true})

	assert.Equal(t, 2, all.len())
	require.Equal(t, 1, pauses.len())
	assert.True(t, pauses.events[0].System)
	assert.Equal(t, uint64(2), m.SequenceNo())
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager(0)
	c := &collector{}

	id := m.Subscribe(c.handle)
	m.Unsubscribe(id)
	m.Broadcast(queue.Event{Type: queue.EventSeek})

	assert.Equal(t, 0, c.len())
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_SlowSubscriberTimesOut(t *testing.T) {
	m := NewManager(50 * time.Millisecond)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	m.Subscribe(func(ctx context.Context, e queue.Event) {
		<-release
	})
	fast := &collector{}
	m.Subscribe(fast.handle)

	start := time.Now()
	m.Broadcast(queue.Event{Type: queue.EventQueueAdd})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, fast.len())
}

func TestManager_PanickingSubscriber(t *testing.T) {
	m := NewManager(0)
	m.Subscribe(func(context.Context, queue.Event) { panic("boom") })
	c := &collector{}
	m.Subscribe(c.handle)

	assert.NotPanics(t, func() {
		m.Broadcast(queue.Event{Type: queue.EventQueueAdd})
	})
	assert.Equal(t, 1, c.len())
}

func TestManager_Close(t *testing.T) {
	m := NewManager(0)
	m.Subscribe(func(context.Context, queue.Event) {})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestRelay_PublishesToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	sub := client.Subscribe(ctx, "guildqueue:events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	qm := queue.NewManager(queue.Config{}, redisstore.New(client), nil, nil, nil)
	m := NewManager(0)
	NewRelay(redisstore.New(client), "guildqueue:events").Attach(m)

	s := song.Song{
		Track:     song.Track{Encoded: "ref", Title: "Song A", URI: "https://example.com/a"},
		Requester: &song.Requester{ID: "u1"},
	}
	m.Broadcast(queue.Event{Type: queue.EventTrackStart, Queue: qm.Get("guild-1"), Song: &s, Position: 1500 * time.Millisecond})

	raw, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw.Payload), &msg))
	assert.Equal(t, "track_start", msg.Type)
	assert.Equal(t, "guild-1", msg.Tenant)
	assert.Equal(t, int64(1500), msg.Position)
	require.NotNil(t, msg.Track)
	assert.Equal(t, "Song A", msg.Track.Title)
	assert.Equal(t, "u1", msg.Track.RequesterID)
	assert.Nil(t, msg.Volume)
}

func TestNewMessage_Volume(t *testing.T) {
	msg := NewMessage(queue.Event{Type: queue.EventVolume, Volume: queue.VolumeChange{Previous: 100, Next: 40}})
	require.NotNil(t, msg.Volume)
	assert.Equal(t, 40, msg.Volume.Next)
	assert.Empty(t, msg.Tenant)
}
