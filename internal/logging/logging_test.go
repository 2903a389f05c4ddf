package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"behaviorgate/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info().Msg("dropped")
	logger.Warn().Str("ip", "203.0.113.9").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "203.0.113.9", entry["ip"])
	assert.Equal(t, "behaviorgate", entry["service"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&config.Config{LogLevel: "bogus"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = newLogger(&config.Config{LogLevel: "error", DebugMode: true}, &buf)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "info", LogFormat: "console"}, &buf)

	logger.Info().Msg("verification accepted")
	assert.Contains(t, buf.String(), "verification accepted")
	assert.False(t, json.Valid(buf.Bytes()))
}
