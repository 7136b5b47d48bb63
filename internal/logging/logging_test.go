package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelWarn,
		"verbose": slog.LevelWarn,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat("yaml"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf})

	logger.Debug("hidden")
	logger.Info("imported", "requests", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "imported", line["msg"])
	assert.EqualValues(t, 3, line["requests"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("discarded") })
}

func TestConfigFor(t *testing.T) {
	def := DefaultConfig()
	assert.Equal(t, slog.LevelWarn, def.Level)
	assert.Equal(t, FormatText, def.Format)
	assert.Equal(t, os.Stderr, def.Output)

	assert.Equal(t, def, ConfigFor("", ""))

	cfg := ConfigFor("debug", "JSON")
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, os.Stderr, cfg.Output)
}
