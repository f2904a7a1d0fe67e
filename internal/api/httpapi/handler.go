package httpapi

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/osa030/guildqueue/internal/app/filter"
	"github.com/osa030/guildqueue/internal/app/playback"
	"github.com/osa030/guildqueue/internal/app/queue"
	"github.com/osa030/guildqueue/internal/domain/song"
)

// Handler serves queue and session routes.
type Handler struct {
	queues  *queue.Manager
	binder  *playback.Binder
	filters *filter.Chain
	connect map[string]any
}

// NewHandler creates a handler. filters may be nil.
// connect holds the default connect settings merged under each session request.
func NewHandler(queues *queue.Manager, binder *playback.Binder, filters *filter.Chain, connect map[string]any) *Handler {
	if filters == nil {
		filters = filter.NewChain()
	}
	return &Handler{queues: queues, binder: binder, filters: filters, connect: connect}
}

func (h *Handler) queue(c *gin.Context) *queue.Queue {
	return h.queues.Get(c.Param("tenant"))
}

// Status handles GET /.
func (h *Handler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	q := h.queue(c)

	view := QueueView{Tenant: q.TenantID()}

	nowPlaying, err := q.NowPlaying(ctx)
	if err != nil {
		Fail(c, err)
		return
	}
	if nowPlaying != nil {
		view.NowPlaying = &NowPlayingView{
			Track:      newTrackView(nowPlaying.Song),
			PositionMs: nowPlaying.Position.Milliseconds(),
		}
	}
	if view.Count, err = q.Count(ctx); err != nil {
		Fail(c, err)
		return
	}
	if view.Volume, err = q.Volume(ctx); err != nil {
		Fail(c, err)
		return
	}
	if view.Replay, err = q.Replay(ctx); err != nil {
		Fail(c, err)
		return
	}
	if view.SystemPaused, err = q.IsSystemPaused(ctx); err != nil {
		Fail(c, err)
		return
	}
	if view.TextChannelID, _, err = q.TextChannelID(ctx); err != nil {
		Fail(c, err)
		return
	}
	if s, ok := h.binder.Session(q.TenantID()); ok {
		view.Session = newSessionView(s)
	}

	Success(c, view)
}

// ListTracks handles GET /tracks?start=&end=.
func (h *Handler) ListTracks(c *gin.Context) {
	start, err := strconv.ParseInt(c.DefaultQuery("start", "0"), 10, 64)
	if err != nil || start < 0 {
		BadRequest(c, "invalid start")
		return
	}
	end, err := strconv.ParseInt(c.DefaultQuery("end", strconv.FormatInt(queue.TracksEnd, 10)), 10, 64)
	if err != nil || end < queue.TracksEnd {
		BadRequest(c, "invalid end")
		return
	}

	songs, err := h.queue(c).Tracks(c.Request.Context(), start, end)
	if err != nil {
		Fail(c, err)
		return
	}

	views := make([]TrackView, 0, len(songs))
	for i, s := range songs {
		index := start + int64(i)
		v := newTrackView(s)
		v.Index = &index
		views = append(views, v)
	}
	Success(c, views)
}

// AddTracks handles POST /tracks.
func (h *Handler) AddTracks(c *gin.Context) {
	var req AddTracksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	q := h.queue(c)
	requester := req.Requester.toRequester()

	resp := AddTracksResponse{}
	accepted := make([]song.Song, 0, len(req.Tracks))
	for i, in := range req.Tracks {
		s := song.New(in.toTrack(), requester)
		result, err := h.filters.Execute(ctx, filter.Request{Queue: q, Song: s})
		if err != nil {
			Fail(c, err)
			return
		}
		if !result.Accepted {
			resp.Rejected = append(resp.Rejected, Rejection{Index: i, Code: result.Code})
			continue
		}
		accepted = append(accepted, s)
	}

	added, err := q.Add(ctx, queue.AddOptions{}, accepted...)
	if err != nil {
		Fail(c, err)
		return
	}
	resp.Added = added
	Success(c, resp)
}

// RemoveTrack handles DELETE /tracks/:index.
func (h *Handler) RemoveTrack(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid index")
		return
	}

	removed, err := h.queue(c).RemoveAt(c.Request.Context(), index)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, newTrackView(removed))
}

// MoveTrack handles POST /tracks/move.
func (h *Handler) MoveTrack(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := h.queue(c).MoveTracks(c.Request.Context(), *req.From, *req.To); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// ShuffleTracks handles POST /tracks/shuffle.
func (h *Handler) ShuffleTracks(c *gin.Context) {
	if err := h.queue(c).ShuffleTracks(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// ClearTracks handles DELETE /tracks.
func (h *Handler) ClearTracks(c *gin.Context) {
	if err := h.queue(c).ClearTracks(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// Start handles POST /start.
func (h *Handler) Start(c *gin.Context) {
	q := h.queue(c)
	if _, err := h.binder.Require(q.TenantID()); err != nil {
		Fail(c, err)
		return
	}

	started, err := q.Start(c.Request.Context(), false)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"started": started})
}

// Skip handles POST /skip.
func (h *Handler) Skip(c *gin.Context) {
	playing, err := h.queue(c).Skip(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"playing": playing})
}

// Pause handles POST /pause.
func (h *Handler) Pause(c *gin.Context) {
	var req PauseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	if err := h.queue(c).Pause(c.Request.Context(), req.System); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// Resume handles POST /resume.
func (h *Handler) Resume(c *gin.Context) {
	if err := h.queue(c).Resume(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// SetVolume handles PUT /volume.
func (h *Handler) SetVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	change, err := h.queue(c).SetVolume(c.Request.Context(), *req.Volume)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, change)
}

// SetReplay handles PUT /replay.
func (h *Handler) SetReplay(c *gin.Context) {
	var req ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := h.queue(c).SetReplay(c.Request.Context(), req.Enabled); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"replay": req.Enabled})
}

// Seek handles POST /seek.
func (h *Handler) Seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	q := h.queue(c)
	if _, err := h.binder.Require(q.TenantID()); err != nil {
		Fail(c, err)
		return
	}
	if err := q.Seek(c.Request.Context(), time.Duration(req.PositionMs)*time.Millisecond); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// TextChannel handles GET /text-channel.
func (h *Handler) TextChannel(c *gin.Context) {
	ch, err := h.queue(c).TextChannel(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	if ch == nil {
		Fail(c, errors.Wrap(queue.ErrChannelNotFound, "no text channel bound"))
		return
	}
	Success(c, ChannelView{ID: ch.ID, Name: ch.Name, GuildID: ch.GuildID})
}

// BindTextChannel handles PUT /text-channel.
func (h *Handler) BindTextChannel(c *gin.Context) {
	var req TextChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := h.queue(c).BindTextChannel(c.Request.Context(), req.ChannelID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// UnbindTextChannel handles DELETE /text-channel.
func (h *Handler) UnbindTextChannel(c *gin.Context) {
	if err := h.queue(c).UnbindTextChannel(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// CreateSession handles POST /session.
func (h *Handler) CreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	settings := make(map[string]any, len(h.connect)+len(req.Connect))
	for k, v := range h.connect {
		settings[k] = v
	}
	for k, v := range req.Connect {
		settings[k] = v
	}
	opts, err := playback.DecodeConnectOptions(settings)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	s, err := h.binder.Create(c.Request.Context(), h.queue(c), req.VoiceChannelID, opts)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, newSessionView(s))
}

// DestroySession handles DELETE /session.
func (h *Handler) DestroySession(c *gin.Context) {
	if err := h.binder.Destroy(c.Request.Context(), c.Param("tenant")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// Clear handles DELETE /.
func (h *Handler) Clear(c *gin.Context) {
	if err := h.queue(c).Clear(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
