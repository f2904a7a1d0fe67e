package song

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidSong is returned when a stored value cannot be decoded.
var ErrInvalidSong = errors.New("invalid song payload")

type storedTrack struct {
	Encoded string `json:"encoded"`
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
	URI     string `json:"uri,omitempty"`
	Length  int64  `json:"length,omitempty"` // milliseconds
}

type storedRequester struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar,omitempty"`
}

type storedSong struct {
	Track     storedTrack      `json:"track"`
	AddedAt   int64            `json:"addedAt"` // unix milliseconds
	Requester *storedRequester `json:"requester,omitempty"`
}

// Encode serializes a song to its stored string form. Songs without a
// track reference are rejected with ErrInvalidSong.
func Encode(s Song) (string, error) {
	if s.Track.Encoded == "" {
		return "", errors.Wrap(ErrInvalidSong, "missing track reference")
	}
	v := storedSong{
		Track: storedTrack{
			Encoded: s.Track.Encoded,
			Title:   s.Track.Title,
			Author:  s.Track.Author,
			URI:     s.Track.URI,
			Length:  s.Track.Length.Milliseconds(),
		},
		AddedAt: s.AddedAt.UnixMilli(),
	}
	if s.Requester != nil {
		v.Requester = &storedRequester{
			ID:        s.Requester.ID,
			Name:      s.Requester.Name,
			AvatarURL: s.Requester.AvatarURL,
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode song")
	}
	return string(data), nil
}

// Decode parses a stored string back into a song.
func Decode(raw string) (Song, error) {
	var v storedSong
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Song{}, errors.Mark(errors.Wrap(err, "failed to decode song"), ErrInvalidSong)
	}
	if v.Track.Encoded == "" {
		return Song{}, errors.Wrap(ErrInvalidSong, "missing track reference")
	}

	s := Song{
		Track: Track{
			Encoded: v.Track.Encoded,
			Title:   v.Track.Title,
			Author:  v.Track.Author,
			URI:     v.Track.URI,
			Length:  time.Duration(v.Track.Length) * time.Millisecond,
		},
		AddedAt: time.UnixMilli(v.AddedAt).UTC(),
	}
	if v.Requester != nil {
		s.Requester = &Requester{
			ID:        v.Requester.ID,
			Name:      v.Requester.Name,
			AvatarURL: v.Requester.AvatarURL,
		}
	}
	return s, nil
}

// EncodeAll serializes songs in order.
func EncodeAll(songs []Song) ([]string, error) {
	out := make([]string, 0, len(songs))
	for _, s := range songs {
		raw, err := Encode(s)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}
