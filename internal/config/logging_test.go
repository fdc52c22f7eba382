package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggingConfig{Level: "WARN", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")

	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "shown", entry["message"])
	require.Equal(t, "eventdesk", entry["service"])
	require.Equal(t, "v", entry["k"])
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggingConfig{Level: "loud"}, &buf)
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = newLogger(LoggingConfig{}, &buf)
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggingConfig{Level: "debug", Format: "console"}, &buf)
	logger.Debug().Msg("hello console")

	require.Contains(t, buf.String(), "hello console")
	require.NotContains(t, buf.String(), `"message"`)
}
