package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forex-journal/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestLoggerWritesConsoleAndFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:      "debug",
		Console:    true,
		ConsoleOut: &console,
		NoColor:    true,
		File:       true,
		FilePath:   path,
		MaxSize:    1,
	})

	userLogger := WithUser(logger, "u1")
	userLogger.Debug().Msg("hello")

	assert.Contains(t, console.String(), "hello")
	assert.Contains(t, console.String(), "user_id=u1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_id":"u1"`)
}

func TestLevelFiltering(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", Console: true, ConsoleOut: &buf, NoColor: true})

	logger.Info().Msg("quiet")
	LogRequest(logger, "GET", "/api/trades", 404, time.Millisecond)

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "/api/trades")
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default("/tmp/fx")
	cfg.UI.ColorEnabled = false

	lc := FromConfig(cfg)
	assert.Equal(t, filepath.Join("/tmp/fx", "logs", "fxjournal.log"), lc.FilePath)
	assert.True(t, lc.NoColor)
	assert.Equal(t, cfg.Logging.MaxBackups, lc.MaxBackups)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestID(ctx))

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx = WithLogger(WithRequestID(ctx, "req-1"), logger)

	assert.Equal(t, "req-1", RequestID(ctx))
	l := FromContext(ctx)
	l.Info().Msg("x")
	assert.NotEmpty(t, buf.String())

	// Nop logger when absent
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
}
