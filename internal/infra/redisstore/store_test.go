package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func seedList(t *testing.T, s *Store, key string, vals ...string) {
	t.Helper()
	_, err := s.client.RPush(context.Background(), key, vals).Result()
	require.NoError(t, err)
}

func TestStore_GetSetDel(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1", 0))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	prev, ok, err := s.GetSet(ctx, "k", "v2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", prev)

	_, ok, err = s.GetSet(ctx, "fresh", "x")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Del(ctx, "k", "fresh"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Expire(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "1", 0))
	seedList(t, s, "b", "x")

	require.NoError(t, s.Expire(ctx, time.Hour, "a", "b", "missing"))
	assert.Equal(t, time.Hour, mr.TTL("a"))
	assert.Equal(t, time.Hour, mr.TTL("b"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))
}

func TestStore_LPushOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	n, err := s.LPush(ctx, "l", "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	vals, err := s.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, vals)

	n, err = s.LPush(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_PopInto(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	seedList(t, s, "next", "b", "a")

	v, ok, err := s.PopInto(ctx, "next", "current")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	got, _ := mr.Get("current")
	assert.Equal(t, "a", got)

	v, ok, err = s.PopInto(ctx, "next", "current")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok, err = s.PopInto(ctx, "next", "current")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("current"))
}

func TestStore_PopIntoIf(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	seedList(t, s, "next", "c", "b")
	require.NoError(t, mr.Set("current", "a"))

	// dst moved on: nothing happens
	_, ok, matched, err := s.PopIntoIf(ctx, "next", "current", "stale")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.False(t, ok)
	got, _ := mr.Get("current")
	assert.Equal(t, "a", got)
	n, err := s.LLen(ctx, "next")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, ok, matched, err := s.PopIntoIf(ctx, "next", "current", "a")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	got, _ = mr.Get("current")
	assert.Equal(t, "b", got)

	// Same expectation again is now stale
	_, _, matched, err = s.PopIntoIf(ctx, "next", "current", "a")
	require.NoError(t, err)
	assert.False(t, matched)

	_, ok, matched, err = s.PopIntoIf(ctx, "next", "current", "b")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.True(t, ok)

	_, ok, matched, err = s.PopIntoIf(ctx, "next", "current", "c")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.False(t, ok)
	assert.False(t, mr.Exists("current"))

	// Absent dst never matches
	_, _, matched, err = s.PopIntoIf(ctx, "next", "current", "c")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestStore_LIndex(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedList(t, s, "l", "a", "b", "c")

	v, ok, err := s.LIndex(ctx, "l", -1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	_, ok, err = s.LIndex(ctx, "l", 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LRemAt(t *testing.T) {
	tests := []struct {
		name      string
		idx       int64
		wantFound bool
		wantValue string
		wantList  []string
	}{
		{name: "head", idx: 0, wantFound: true, wantValue: "a", wantList: []string{"b", "a", "c"}},
		{name: "tail", idx: -1, wantFound: true, wantValue: "c", wantList: []string{"a", "b", "a"}},
		{name: "duplicate value removes only the indexed copy", idx: 2, wantFound: true, wantValue: "a", wantList: []string{"a", "b", "c"}},
		{name: "out of range", idx: 10, wantFound: false, wantList: []string{"a", "b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			ctx := context.Background()
			seedList(t, s, "l", "a", "b", "a", "c")

			v, found, err := s.LRemAt(ctx, "l", tt.idx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantValue, v)

			vals, err := s.LRange(ctx, "l", 0, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantList, vals)
		})
	}
}

func TestStore_LMove(t *testing.T) {
	tests := []struct {
		name      string
		from, to  int64
		wantMoved bool
		wantList  []string
	}{
		{name: "forward", from: 0, to: 2, wantMoved: true, wantList: []string{"b", "c", "a", "d"}},
		{name: "backward", from: 3, to: 0, wantMoved: true, wantList: []string{"d", "a", "b", "c"}},
		{name: "negative indices", from: -1, to: -3, wantMoved: true, wantList: []string{"a", "d", "b", "c"}},
		{name: "same index", from: 1, to: 1, wantMoved: true, wantList: []string{"a", "b", "c", "d"}},
		{name: "from out of range", from: 4, to: 0, wantMoved: false, wantList: []string{"a", "b", "c", "d"}},
		{name: "to out of range", from: 0, to: -5, wantMoved: false, wantList: []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			ctx := context.Background()
			seedList(t, s, "l", "a", "b", "c", "d")

			moved, err := s.LMove(ctx, "l", tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMoved, moved)

			vals, err := s.LRange(ctx, "l", 0, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantList, vals)
		})
	}
}

func TestStore_LShuffle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedList(t, s, "l", "a", "b", "c", "d", "e")

	require.NoError(t, s.LShuffle(ctx, "l"))

	vals, err := s.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, vals)

	require.NoError(t, s.LShuffle(ctx, "empty"))
}

func TestStore_Publish(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	sub := s.client.Subscribe(ctx, "events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, "events", "hello"))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Payload)
	assert.Equal(t, 1, len(mr.PubSubChannels("events")))
}

func TestMoveElement(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, moveElement([]string{"a", "b", "c"}, 0, 1))
	assert.Equal(t, []string{"c", "a", "b"}, moveElement([]string{"a", "b", "c"}, 2, 0))
}
