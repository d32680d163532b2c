package slogpretty

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

func TestPrettyHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	log := slog.New(PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelInfo},
	}.NewPrettyHandler(&buf))

	log.With("component", "sync_service").Info("delta sync completed", "applied", 3)

	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "delta sync completed")
	assert.Contains(t, out, `"component": "sync_service"`)
	assert.Contains(t, out, `"applied": 3`)
}

func TestPrettyHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelWarn},
	}.NewPrettyHandler(&buf))

	log.Info("skipped")
	assert.Empty(t, buf.String())
}
