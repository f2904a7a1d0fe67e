// Package httpapi exposes queue and playback session operations over HTTP.
package httpapi

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/app/playback"
	"github.com/osa030/guildqueue/internal/app/queue"
	"github.com/osa030/guildqueue/internal/domain/song"
	"github.com/osa030/guildqueue/internal/infra/redisstore"
)

// Response is the JSON envelope of every API response.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

// Error writes an error response.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Response{Code: httpStatus, Message: message})
}

// BadRequest writes a 400 response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Fail maps err to a status code and writes it.
func Fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		zlog.Error().Err(err).Str("path", c.FullPath()).Msg("httpapi: request failed")
		Error(c, status, "internal server error")
		return
	}
	Error(c, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, queue.ErrInvalidVolume),
		errors.Is(err, song.ErrInvalidSong):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrIndexOutOfRange),
		errors.Is(err, queue.ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrNothingPlaying),
		errors.Is(err, playback.ErrNoSession),
		errors.Is(err, redisstore.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
