package queue

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/domain/song"
)

// TracksEnd is the unbounded end sentinel for Tracks.
const TracksEnd int64 = -1

// AddOptions controls how songs are added.
type AddOptions struct {
	Requester *song.Requester // Attached to songs without a requester
}

// AdvanceOptions describes why the queue advances.
type AdvanceOptions struct {
	Skipped bool       // Caller-initiated skip or failed track (breaks replay mode)
	Ended   *song.Song // Song whose end triggers the advance; nil advances unconditionally
}

// NowPlaying is the current track and its playback offset.
type NowPlaying struct {
	Song     song.Song
	Position time.Duration
}

// Queue is the queue of one tenant. All state lives in the store.
type Queue struct {
	tenantID string
	keys     Keys
	m        *Manager
}

// TenantID returns the tenant identifier.
func (q *Queue) TenantID() string {
	return q.tenantID
}

// Keys returns the tenant's key family.
func (q *Queue) Keys() Keys {
	return q.keys
}

// Add prepends songs to the pending list as one batch and returns the count added.
func (q *Queue) Add(ctx context.Context, opts AddOptions, songs ...song.Song) (int, error) {
	if len(songs) == 0 {
		return 0, nil
	}

	now := song.Timestamp(time.Now())
	prepared := make([]song.Song, 0, len(songs))
	for _, s := range songs {
		if s.Requester == nil && opts.Requester != nil {
			s = s.WithRequester(opts.Requester)
		}
		if s.AddedAt.IsZero() {
			s.AddedAt = now
		}
		prepared = append(prepared, s.Normalize())
	}

	encoded, err := song.EncodeAll(prepared)
	if err != nil {
		return 0, err
	}
	if _, err := q.m.store.LPush(ctx, q.keys.Next, encoded...); err != nil {
		return 0, errors.Wrap(err, "failed to add songs")
	}

	q.touch(ctx)
	q.emit(Event{Type: EventQueueAdd, Count: len(prepared)})
	return len(prepared), nil
}

// Start plays the current song at the stored position, advancing first when
// nothing is current. It is the only operation that issues play commands.
// Returns false when nothing was played.
func (q *Queue) Start(ctx context.Context, replaying bool) (bool, error) {
	current, err := q.current(ctx)
	if err != nil {
		return false, err
	}
	if current == nil {
		return q.Advance(ctx, AdvanceOptions{})
	}

	player, ok := q.m.players.Player(q.tenantID)
	if !ok {
		zlog.Debug().Str("tenant", q.tenantID).Msg("queue: no player bound, start skipped")
		return false, nil
	}

	position, err := q.Position(ctx)
	if err != nil {
		return false, err
	}
	if err := player.Play(ctx, *current, position); err != nil {
		return false, errors.Wrap(err, "failed to play")
	}

	evt := EventTrackStart
	if replaying {
		evt = EventTrackReplay
	}
	zlog.Debug().Str("tenant", q.tenantID).Msgf("queue: %s: track=%s position=%v", evt, current.Track.Title, position)
	q.emit(Event{Type: evt, Song: current, Position: position})
	return true, nil
}

// Advance moves to the next song, or replays the current one when replay mode
// is on and the track ended naturally. Returns false when the queue finished.
// With opts.Ended set, an end signal for a song that is no longer current is
// ignored and Advance returns false without touching the queue.
func (q *Queue) Advance(ctx context.Context, opts AdvanceOptions) (bool, error) {
	var expect string
	if opts.Ended != nil {
		raw, err := song.Encode(*opts.Ended)
		if err != nil {
			return false, err
		}
		current, ok, err := q.m.store.Get(ctx, q.keys.Current)
		if err != nil {
			return false, errors.Wrap(err, "failed to read current song")
		}
		if !ok || current != raw {
			zlog.Debug().Str("tenant", q.tenantID).Msgf("queue: stale end of %s ignored", opts.Ended.Track.Title)
			return false, nil
		}
		expect = raw
	}

	if err := q.m.store.Del(ctx, q.keys.Position); err != nil {
		return false, errors.Wrap(err, "failed to reset position")
	}

	replay, err := q.Replay(ctx)
	if err != nil {
		return false, err
	}
	if replay {
		if !opts.Skipped {
			_, hasCurrent, err := q.m.store.Get(ctx, q.keys.Current)
			if err != nil {
				return false, errors.Wrap(err, "failed to read current song")
			}
			if hasCurrent {
				return q.Start(ctx, true)
			}
		}
		if err := q.m.store.Set(ctx, q.keys.Replay, "0", 0); err != nil {
			return false, errors.Wrap(err, "failed to clear replay mode")
		}
		q.emit(Event{Type: EventReplayChange, Replay: false})
	}

	ok, matched, err := q.popNext(ctx, expect)
	if err != nil {
		return false, err
	}
	if !matched {
		zlog.Debug().Str("tenant", q.tenantID).Msg("queue: current song changed during advance, ignored")
		return false, nil
	}
	if !ok {
		q.touch(ctx)
		zlog.Debug().Str("tenant", q.tenantID).Msg("queue: finished")
		q.emit(Event{Type: EventQueueFinish})
		return false, nil
	}

	q.touch(ctx)
	return q.Start(ctx, false)
}

// popNext moves the oldest pending song into current. With expect set, the
// move only happens while current still holds expect.
func (q *Queue) popNext(ctx context.Context, expect string) (ok, matched bool, err error) {
	if expect == "" {
		_, ok, err = q.m.store.PopInto(ctx, q.keys.Next, q.keys.Current)
		if err != nil {
			return false, false, errors.Wrap(err, "failed to advance")
		}
		return ok, true, nil
	}
	_, ok, matched, err = q.m.store.PopIntoIf(ctx, q.keys.Next, q.keys.Current, expect)
	if err != nil {
		return false, false, errors.Wrap(err, "failed to advance")
	}
	return ok, matched, nil
}

// Skip stops the current track and advances, breaking replay mode.
func (q *Queue) Skip(ctx context.Context) (bool, error) {
	if player, ok := q.m.players.Player(q.tenantID); ok {
		if err := player.Stop(ctx); err != nil {
			return false, errors.Wrap(err, "failed to stop player")
		}
	}
	return q.Advance(ctx, AdvanceOptions{Skipped: true})
}

// Pause pauses playback. system marks an automatic pause.
func (q *Queue) Pause(ctx context.Context, system bool) error {
	if player, ok := q.m.players.Player(q.tenantID); ok {
		if err := player.Pause(ctx, true); err != nil {
			return errors.Wrap(err, "failed to pause player")
		}
	}
	if err := q.m.store.Set(ctx, q.keys.SystemPause, formatBool(system), 0); err != nil {
		return errors.Wrap(err, "failed to store pause flag")
	}

	q.touch(ctx)
	q.emit(Event{Type: EventPause, System: system})
	return nil
}

// Resume resumes playback. The event reports whether the pause being lifted was automatic.
func (q *Queue) Resume(ctx context.Context) error {
	if player, ok := q.m.players.Player(q.tenantID); ok {
		if err := player.Pause(ctx, false); err != nil {
			return errors.Wrap(err, "failed to resume player")
		}
	}
	prev, _, err := q.m.store.GetSet(ctx, q.keys.SystemPause, "0")
	if err != nil {
		return errors.Wrap(err, "failed to store pause flag")
	}

	q.touch(ctx)
	q.emit(Event{Type: EventResume, System: parseBool(prev)})
	return nil
}

// IsSystemPaused reports whether the last pause was automatic.
func (q *Queue) IsSystemPaused(ctx context.Context) (bool, error) {
	return q.flag(ctx, q.keys.SystemPause)
}

// SetVolume forwards the volume to the player and atomically swaps the stored value.
func (q *Queue) SetVolume(ctx context.Context, volume int) (VolumeChange, error) {
	if volume < 0 || volume > MaxVolume {
		return VolumeChange{}, errors.Wrapf(ErrInvalidVolume, "volume %d", volume)
	}
	if player, ok := q.m.players.Player(q.tenantID); ok {
		if err := player.SetVolume(ctx, volume); err != nil {
			return VolumeChange{}, errors.Wrap(err, "failed to set player volume")
		}
	}

	prev, ok, err := q.m.store.GetSet(ctx, q.keys.Volume, strconv.Itoa(volume))
	if err != nil {
		return VolumeChange{}, errors.Wrap(err, "failed to store volume")
	}
	change := VolumeChange{Previous: parseVolume(prev, ok), Next: volume}

	q.touch(ctx)
	q.emit(Event{Type: EventVolume, Volume: change})
	return change, nil
}

// Volume returns the last set volume.
func (q *Queue) Volume(ctx context.Context) (int, error) {
	v, ok, err := q.m.store.Get(ctx, q.keys.Volume)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read volume")
	}
	return parseVolume(v, ok), nil
}

// Seek forwards a seek to the player. The position itself is persisted by progress reports.
func (q *Queue) Seek(ctx context.Context, position time.Duration) error {
	player, ok := q.m.players.Player(q.tenantID)
	if !ok {
		return nil
	}
	if err := player.Seek(ctx, position); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	q.emit(Event{Type: EventSeek, Position: position})
	return nil
}

// SetPosition stores the playback offset reported by the engine.
func (q *Queue) SetPosition(ctx context.Context, position time.Duration) error {
	if err := q.m.store.Set(ctx, q.keys.Position, strconv.FormatInt(position.Milliseconds(), 10), 0); err != nil {
		return errors.Wrap(err, "failed to store position")
	}
	q.touch(ctx)
	return nil
}

// Position returns the stored playback offset.
func (q *Queue) Position(ctx context.Context) (time.Duration, error) {
	v, ok, err := q.m.store.Get(ctx, q.keys.Position)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read position")
	}
	if !ok {
		return 0, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms < 0 {
		return 0, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// SetReplay toggles replay mode. Enabling it requires a current song.
func (q *Queue) SetReplay(ctx context.Context, replay bool) error {
	if replay {
		_, ok, err := q.m.store.Get(ctx, q.keys.Current)
		if err != nil {
			return errors.Wrap(err, "failed to read current song")
		}
		if !ok {
			return ErrNothingPlaying
		}
	}
	if err := q.m.store.Set(ctx, q.keys.Replay, formatBool(replay), 0); err != nil {
		return errors.Wrap(err, "failed to store replay mode")
	}

	q.touch(ctx)
	q.emit(Event{Type: EventReplayChange, Replay: replay})
	return nil
}

// Replay reports whether replay mode is on.
func (q *Queue) Replay(ctx context.Context) (bool, error) {
	return q.flag(ctx, q.keys.Replay)
}

// RemoveAt removes the pending song at logical index i.
func (q *Queue) RemoveAt(ctx context.Context, i int64) (song.Song, error) {
	if i < 0 {
		return song.Song{}, errors.Wrapf(ErrIndexOutOfRange, "index %d", i)
	}
	raw, found, err := q.m.store.LRemAt(ctx, q.keys.Next, PhysicalIndex(i))
	if err != nil {
		return song.Song{}, errors.Wrap(err, "failed to remove song")
	}
	if !found {
		return song.Song{}, errors.Wrapf(ErrIndexOutOfRange, "index %d", i)
	}
	s, err := song.Decode(raw)
	if err != nil {
		return song.Song{}, err
	}

	q.touch(ctx)
	q.emit(Event{Type: EventQueueRemove, Song: &s, From: i})
	return s, nil
}

// MoveTracks relocates the pending song at logical index from to logical index to.
func (q *Queue) MoveTracks(ctx context.Context, from, to int64) error {
	if from < 0 || to < 0 {
		return errors.Wrapf(ErrIndexOutOfRange, "move %d -> %d", from, to)
	}
	moved, err := q.m.store.LMove(ctx, q.keys.Next, PhysicalIndex(from), PhysicalIndex(to))
	if err != nil {
		return errors.Wrap(err, "failed to move song")
	}
	if !moved {
		return errors.Wrapf(ErrIndexOutOfRange, "move %d -> %d", from, to)
	}

	q.touch(ctx)
	q.emit(Event{Type: EventQueueMove, From: from, To: to})
	return nil
}

// ShuffleTracks randomly reorders the pending list.
func (q *Queue) ShuffleTracks(ctx context.Context) error {
	if err := q.m.store.LShuffle(ctx, q.keys.Next); err != nil {
		return errors.Wrap(err, "failed to shuffle")
	}
	q.touch(ctx)
	q.emit(Event{Type: EventQueueShuffle})
	return nil
}

// ClearTracks empties the pending list.
func (q *Queue) ClearTracks(ctx context.Context) error {
	if err := q.m.store.Del(ctx, q.keys.Next); err != nil {
		return errors.Wrap(err, "failed to clear pending songs")
	}
	q.touch(ctx)
	q.emit(Event{Type: EventQueueClear})
	return nil
}

// GetAt returns the pending song at logical index i, or nil.
func (q *Queue) GetAt(ctx context.Context, i int64) (*song.Song, error) {
	if i < 0 {
		return nil, nil
	}
	raw, ok, err := q.m.store.LIndex(ctx, q.keys.Next, PhysicalIndex(i))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read song")
	}
	if !ok {
		return nil, nil
	}
	s, err := song.Decode(raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Tracks returns pending songs in play order between logical indices start
// and end inclusive. end == TracksEnd reads to the end of the list.
func (q *Queue) Tracks(ctx context.Context, start, end int64) ([]song.Song, error) {
	if start < 0 {
		start = 0
	}
	if end != TracksEnd && end < start {
		return []song.Song{}, nil
	}

	physStart := int64(0)
	if end != TracksEnd {
		physStart = PhysicalIndex(end)
	}
	raws, err := q.m.store.LRange(ctx, q.keys.Next, physStart, PhysicalIndex(start))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read songs")
	}
	slices.Reverse(raws)

	songs := make([]song.Song, 0, len(raws))
	for _, raw := range raws {
		s, err := song.Decode(raw)
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, nil
}

// Count returns the number of pending songs.
func (q *Queue) Count(ctx context.Context) (int64, error) {
	n, err := q.m.store.LLen(ctx, q.keys.Next)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count songs")
	}
	return n, nil
}

// NowPlaying returns the current song and position, or nil.
func (q *Queue) NowPlaying(ctx context.Context) (*NowPlaying, error) {
	current, err := q.current(ctx)
	if err != nil || current == nil {
		return nil, err
	}
	position, err := q.Position(ctx)
	if err != nil {
		return nil, err
	}
	return &NowPlaying{Song: *current, Position: position}, nil
}

// CanStart reports whether there is anything to play.
func (q *Queue) CanStart(ctx context.Context) (bool, error) {
	_, ok, err := q.m.store.Get(ctx, q.keys.Current)
	if err != nil {
		return false, errors.Wrap(err, "failed to read current song")
	}
	if ok {
		return true, nil
	}
	n, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear deletes the whole key family.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.m.store.Del(ctx, q.keys.All()...); err != nil {
		return errors.Wrap(err, "failed to clear queue")
	}
	q.emit(Event{Type: EventQueueClear, Hard: true})
	return nil
}

// Refresh re-arms the retention TTL on every key of the family.
func (q *Queue) Refresh(ctx context.Context) error {
	if err := q.m.store.Expire(ctx, q.m.config.Retention, q.keys.All()...); err != nil {
		return errors.Wrap(err, "failed to refresh queue ttl")
	}
	return nil
}

// BindTextChannel stores the text channel used for status messages.
func (q *Queue) BindTextChannel(ctx context.Context, channelID string) error {
	if err := q.m.store.Set(ctx, q.keys.Text, channelID, 0); err != nil {
		return errors.Wrap(err, "failed to bind text channel")
	}
	q.touch(ctx)
	return nil
}

// UnbindTextChannel removes the text channel binding.
func (q *Queue) UnbindTextChannel(ctx context.Context) error {
	if err := q.m.store.Del(ctx, q.keys.Text); err != nil {
		return errors.Wrap(err, "failed to unbind text channel")
	}
	q.touch(ctx)
	return nil
}

// TextChannelID returns the bound text channel ID.
func (q *Queue) TextChannelID(ctx context.Context) (string, bool, error) {
	id, ok, err := q.m.store.Get(ctx, q.keys.Text)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to read text channel")
	}
	return id, ok, nil
}

// TextChannel resolves the bound text channel. A channel that no longer
// exists is unbound and reported as nil.
func (q *Queue) TextChannel(ctx context.Context) (*Channel, error) {
	id, ok, err := q.TextChannelID(ctx)
	if err != nil || !ok {
		return nil, err
	}
	if q.m.directory == nil {
		return &Channel{ID: id}, nil
	}

	ch, err := q.m.directory.Channel(ctx, id)
	if errors.Is(err, ErrChannelNotFound) {
		zlog.Info().Str("tenant", q.tenantID).Msgf("queue: text channel %s is gone, unbinding", id)
		if err := q.UnbindTextChannel(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve text channel")
	}
	return ch, nil
}

func (q *Queue) current(ctx context.Context) (*song.Song, error) {
	raw, ok, err := q.m.store.Get(ctx, q.keys.Current)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read current song")
	}
	if !ok {
		return nil, nil
	}
	s, err := song.Decode(raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queue) flag(ctx context.Context, key string) (bool, error) {
	v, _, err := q.m.store.Get(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "failed to read %s", key)
	}
	return parseBool(v), nil
}

// touch refreshes TTLs after a mutation. Failure is logged, not returned.
func (q *Queue) touch(ctx context.Context) {
	if err := q.Refresh(ctx); err != nil {
		zlog.Warn().Err(err).Str("tenant", q.tenantID).Msg("queue: ttl refresh failed")
	}
}

func (q *Queue) emit(e Event) {
	e.Queue = q
	q.m.events.Emit(e)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(v string) bool {
	return v == "1"
}

func parseVolume(v string, ok bool) int {
	if !ok {
		return DefaultVolume
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return DefaultVolume
	}
	return n
}
