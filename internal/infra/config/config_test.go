package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  addr: \":9090\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, "guildqueue", cfg.Queue.KeyPrefix)
	assert.Equal(t, 48*time.Hour, cfg.Retention())
	assert.True(t, cfg.Queue.RelayEvents)
	assert.Equal(t, 5*time.Second, cfg.ProgressInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.NotificationTimeout())
	assert.Equal(t, time.Duration(0), cfg.StartDelay())
	assert.True(t, cfg.Discord.RESTFallback)
	assert.Equal(t, "guildqueue:events", cfg.EventsChannel())
}

func TestParse_ExplicitFalseSurvivesDefaults(t *testing.T) {
	data := []byte(`
queue:
  relay_events: false
discord:
  rest_fallback: false
`)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.False(t, cfg.Queue.RelayEvents)
	assert.False(t, cfg.Discord.RESTFallback)
}

func TestParse_FullFile(t *testing.T) {
	data := []byte(`
server:
  addr: ":8081"
  mode: debug
  hooks:
    on_started: ["echo started"]
redis:
  url: redis://cache:6379/2
  pool_size: 20
queue:
  key_prefix: music
  retention_hours: 12
playback:
  progress_interval_ms: 1000
  connect:
    self_deaf: false
filters:
  duration_limit:
    enabled: true
    settings:
      max_minutes: 10
  duplicate_track:
    enabled: false
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, []string{"echo started"}, cfg.Server.Hooks.OnStarted)
	assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, "music:events", cfg.EventsChannel())
	assert.Equal(t, 12*time.Hour, cfg.Retention())
	assert.Equal(t, time.Second, cfg.ProgressInterval())
	assert.Equal(t, false, cfg.Playback.Connect["self_deaf"])

	assert.True(t, cfg.IsFilterEnabled("duration_limit"))
	assert.False(t, cfg.IsFilterEnabled("duplicate_track"))
	assert.False(t, cfg.IsFilterEnabled("unknown"))
	assert.Equal(t, 10, cfg.FilterSettings("duration_limit")["max_minutes"])
	assert.Nil(t, cfg.FilterSettings("unknown"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		errMsg string
	}{
		{
			name:   "malformed yaml",
			data:   "server: [",
			errMsg: "failed to parse config file",
		},
		{
			name:   "unknown mode",
			data:   "server:\n  mode: loud\n",
			errMsg: "Mode",
		},
		{
			name:   "prefix with hash tag",
			data:   "queue:\n  key_prefix: \"a{b}\"\n",
			errMsg: "KeyPrefix",
		},
		{
			name:   "retention out of range",
			data:   "queue:\n  retention_hours: 0\n",
			errMsg: "RetentionHours",
		},
		{
			name:   "empty hook",
			data:   "server:\n  hooks:\n    on_stopped: [\"\"]\n",
			errMsg: "on_stopped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg,
				"error message should mention the problematic field")
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  url: redis://file:6379/0\n"), 0o600))

	t.Setenv("REDIS_URL", "redis://env:6379/1")
	t.Setenv("DISCORD_TOKEN", "bot-token")
	t.Setenv("API_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://env:6379/1", cfg.Redis.URL)
	assert.Equal(t, "bot-token", cfg.Discord.Token)
	assert.Equal(t, "secret", cfg.Server.APIToken)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
