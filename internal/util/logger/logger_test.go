package logger

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutput_RedirectsExistingLogger(t *testing.T) {
	log := Logger("test/redirect")

	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	log.Info("after switch", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "after switch")
	assert.Contains(t, out, "key=value")
	assert.Contains(t, out, "subsystem=test/redirect")
}

func TestParseLevels(t *testing.T) {
	cfg := &Config{DefaultLevel: slog.LevelInfo, SubsystemLevels: map[string]slog.Level{}}
	ParseLevels(cfg, "protocol=debug, transport/quic=error,bogus=loud,warn")

	assert.Equal(t, slog.LevelWarn, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelFor("protocol/dispatcher"))
	assert.Equal(t, slog.LevelError, cfg.LevelFor("transport/quic"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelFor("transport/memory"))
	_, ok := cfg.SubsystemLevels["bogus"]
	assert.False(t, ok)
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	log := Logger("test/level")
	SetLevel("test/level", slog.LevelError)
	log.Warn("hidden")
	require.Empty(t, buf.String())

	SetLevel("test/level", slog.LevelDebug)
	log.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "core=debug,error")
	t.Setenv(EnvFormat, "json")
	resetConfig()
	t.Cleanup(resetConfig)

	cfg := ConfigFromEnv()
	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelFor("core/membership"))
	assert.Equal(t, FormatJSON, cfg.Format)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", TruncateID("abc", 8))
	assert.Equal(t, "abcdefgh", TruncateID("abcdefghijk", 8))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("nothing") })
}
