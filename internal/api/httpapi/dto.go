package httpapi

import (
	"time"

	"github.com/osa030/guildqueue/internal/app/playback"
	"github.com/osa030/guildqueue/internal/domain/song"
)

// TrackInput is a track submitted for addition.
type TrackInput struct {
	Encoded  string `json:"encoded" binding:"required"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	URI      string `json:"uri"`
	LengthMs int64  `json:"length_ms" binding:"gte=0"`
}

// RequesterInput identifies who asked for the tracks.
type RequesterInput struct {
	ID        string `json:"id" binding:"required"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// AddTracksRequest is the body of POST /tracks.
type AddTracksRequest struct {
	Tracks    []TrackInput    `json:"tracks" binding:"required,min=1,dive"`
	Requester *RequesterInput `json:"requester"`
}

// Rejection reports a track refused by the admission filters.
type Rejection struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
}

// AddTracksResponse is returned by POST /tracks.
type AddTracksResponse struct {
	Added    int         `json:"added"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// MoveRequest is the body of POST /tracks/move.
type MoveRequest struct {
	From *int64 `json:"from" binding:"required"`
	To   *int64 `json:"to" binding:"required"`
}

// PauseRequest is the optional body of POST /pause.
type PauseRequest struct {
	System bool `json:"system"`
}

// VolumeRequest is the body of PUT /volume.
type VolumeRequest struct {
	Volume *int `json:"volume" binding:"required"`
}

// ReplayRequest is the body of PUT /replay.
type ReplayRequest struct {
	Enabled bool `json:"enabled"`
}

// SeekRequest is the body of POST /seek.
type SeekRequest struct {
	PositionMs int64 `json:"position_ms" binding:"gte=0"`
}

// TextChannelRequest is the body of PUT /text-channel.
type TextChannelRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
}

// SessionRequest is the body of POST /session.
type SessionRequest struct {
	VoiceChannelID string         `json:"voice_channel_id" binding:"required"`
	Connect        map[string]any `json:"connect"`
}

// TrackView is a song as returned by the API.
type TrackView struct {
	Index       *int64 `json:"index,omitempty"`
	Encoded     string `json:"encoded"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	URI         string `json:"uri,omitempty"`
	LengthMs    int64  `json:"length_ms"`
	Stream      bool   `json:"stream"`
	AddedAt     string `json:"added_at"`
	RequesterID string `json:"requester_id,omitempty"`
	Requester   string `json:"requester,omitempty"`
}

// NowPlayingView is the current song with its position.
type NowPlayingView struct {
	Track      TrackView `json:"track"`
	PositionMs int64     `json:"position_ms"`
}

// SessionView describes a bound playback session.
type SessionView struct {
	ID             string `json:"id"`
	VoiceChannelID string `json:"voice_channel_id"`
	State          string `json:"state"`
	CreatedAt      string `json:"created_at"`
}

// QueueView is returned by GET /.
type QueueView struct {
	Tenant        string          `json:"tenant"`
	NowPlaying    *NowPlayingView `json:"now_playing,omitempty"`
	Count         int64           `json:"count"`
	Volume        int             `json:"volume"`
	Replay        bool            `json:"replay"`
	SystemPaused  bool            `json:"system_paused"`
	TextChannelID string          `json:"text_channel_id,omitempty"`
	Session       *SessionView    `json:"session,omitempty"`
}

// ChannelView is a resolved text channel.
type ChannelView struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	GuildID string `json:"guild_id,omitempty"`
}

func (in TrackInput) toTrack() song.Track {
	return song.Track{
		Encoded: in.Encoded,
		Title:   in.Title,
		Author:  in.Author,
		URI:     in.URI,
		Length:  time.Duration(in.LengthMs) * time.Millisecond,
	}
}

func (in *RequesterInput) toRequester() *song.Requester {
	if in == nil {
		return nil
	}
	return &song.Requester{ID: in.ID, Name: in.Name, AvatarURL: in.AvatarURL}
}

func newTrackView(s song.Song) TrackView {
	v := TrackView{
		Encoded:  s.Track.Encoded,
		Title:    s.Track.Title,
		Author:   s.Track.Author,
		URI:      s.Track.URI,
		LengthMs: s.Track.Length.Milliseconds(),
		Stream:   s.Track.IsStream(),
		AddedAt:  s.AddedAt.Format(time.RFC3339Nano),
	}
	if s.Requester != nil {
		v.RequesterID = s.Requester.ID
		v.Requester = s.Requester.Name
	}
	return v
}

func newSessionView(s *playback.Session) *SessionView {
	return &SessionView{
		ID:             s.ID,
		VoiceChannelID: s.ChannelID,
		State:          s.State().String(),
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
