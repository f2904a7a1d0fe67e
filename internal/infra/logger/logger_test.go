package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"":        zerolog.InfoLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel, false)

	l.Debug().Msg("hidden")
	l.Info().Str("tenant", "guild-1").Msg("queue: finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "queue: finished", entry[zerolog.MessageFieldName])
	assert.Equal(t, "guild-1", entry["tenant"])
}

func TestShortCaller(t *testing.T) {
	file := filepath.Join("root", "module", "internal", "app", "queue", "queue.go")
	assert.Equal(t, filepath.Join("queue", "queue.go")+":42", shortCaller(0, file, 42))
	assert.Equal(t, "main.go:7", shortCaller(0, "main.go", 7))
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	closer, err := Init(Config{Output: "file", File: path, Level: "warn"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = Init(Config{Output: "stderr"})
	})

	c := Component("httpapi")
	c.Warn().Msg("slow request")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"httpapi"`)
	assert.Contains(t, string(data), "slow request")
}

func TestInit_BadFile(t *testing.T) {
	_, err := Init(Config{Output: "file", File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
