package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterConfig controls router setup.
type RouterConfig struct {
	Mode     string // gin mode: "debug", "release" or "test"
	APIToken string // bearer token for mutating routes; empty disables auth
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig, h *Handler) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()

	// Global middleware
	r.Use(Recovery())
	r.Use(RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Read-only routes
	read := r.Group("/api/v1/queues/:tenant")
	{
		read.GET("", h.Status)
		read.GET("/tracks", h.ListTracks)
		read.GET("/text-channel", h.TextChannel)
	}

	// Mutating routes
	write := r.Group("/api/v1/queues/:tenant")
	write.Use(TokenAuth(cfg.APIToken))
	{
		write.DELETE("", h.Clear)

		write.POST("/tracks", h.AddTracks)
		write.DELETE("/tracks", h.ClearTracks)
		write.DELETE("/tracks/:index", h.RemoveTrack)
		write.POST("/tracks/move", h.MoveTrack)
		write.POST("/tracks/shuffle", h.ShuffleTracks)

		write.POST("/start", h.Start)
		write.POST("/skip", h.Skip)
		write.POST("/pause", h.Pause)
		write.POST("/resume", h.Resume)
		write.POST("/seek", h.Seek)
		write.PUT("/volume", h.SetVolume)
		write.PUT("/replay", h.SetReplay)

		write.PUT("/text-channel", h.BindTextChannel)
		write.DELETE("/text-channel", h.UnbindTextChannel)

		write.POST("/session", h.CreateSession)
		write.DELETE("/session", h.DestroySession)
	}

	return r
}
