package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	var debug, warn bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("component", "test")

	log.Debug("details")
	log.Warn("careful")

	assert.Contains(t, debug.String(), "details")
	assert.Contains(t, debug.String(), "careful")
	assert.NotContains(t, warn.String(), "details")
	assert.Contains(t, warn.String(), "careful")
	assert.Contains(t, warn.String(), "component=test")
}

func TestLevelHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewLevelHandler(slog.LevelInfo, slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))

	log := slog.New(h).WithGroup("req")
	log.Debug("hidden")
	log.Info("shown", "id", 7)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "req.id=7")
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)

	log.Info("quiet")
	log.Error("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
