package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()

	log.Debug(ctx, "probe", "addr", "127.0.0.1:3000")
	log.Info(ctx, "history merged", "rows", 3)
	log.Warn(ctx, "remote fetch failed", "status", 503)
	log.Error(ctx, "store failed", "op", "insert")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	for i, want := range []string{
		`level=DEBUG msg=probe addr=127.0.0.1:3000`,
		`level=INFO msg="history merged" rows=3`,
		`level=WARN msg="remote fetch failed" status=503`,
		`level=ERROR msg="store failed" op=insert`,
	} {
		assert.Contains(t, lines[i], want)
	}
}

func TestSlogLogger_WithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	log.With("component", "history").Info(context.Background(), "pass done", "gen", 2)
	out := buf.String()
	assert.Contains(t, out, "component=history")
	assert.Contains(t, out, "gen=2")
}

func TestNewSlogText_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := newSlogText(&buf, "warn")
	require.NoError(t, err)

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newSlogText(&buf, "loud")
	require.Error(t, err)
}

func TestNilSlogLoggerDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSlogLogger(nil).Error(context.TODO(), "dropped")
		Nop().With("k", "v").Info(context.TODO(), "dropped")
	})
}
