package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

// consoleAndFile mirrors the production pairing: a console handler at one
// level and the rolling file handler at another.
func consoleAndFile(consoleLevel, fileLevel slog.Level) (*MultiHandler, *bytes.Buffer, *bytes.Buffer) {
	var console, file bytes.Buffer

	multi := NewMultiHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: consoleLevel}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: fileLevel}),
	)

	return multi, &console, &file
}

func TestMultiHandler_RoutesByLevel(t *testing.T) {
	tests := []struct {
		name        string
		level       slog.Level
		enabled     bool
		wantConsole bool
		wantFile    bool
	}{
		{name: "trace reaches neither", level: LevelTrace, enabled: false},
		{name: "debug reaches the file only", level: slog.LevelDebug, enabled: true, wantFile: true},
		{name: "warn reaches both", level: slog.LevelWarn, enabled: true, wantConsole: true, wantFile: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multi, console, file := consoleAndFile(slog.LevelWarn, slog.LevelDebug)

			assert.Equal(t, tt.enabled, multi.Enabled(context.Background(), tt.level))

			slog.New(multi).Log(context.Background(), tt.level, "sync skipped")

			assert.Equal(t, tt.wantConsole, console.Len() > 0, "console")
			assert.Equal(t, tt.wantFile, file.Len() > 0, "file")
		})
	}
}

func TestMultiHandler_DerivedHandlersKeepAttrsAndGroups(t *testing.T) {
	multi, console, file := consoleAndFile(slog.LevelInfo, slog.LevelInfo)

	logger := slog.New(multi).
		With(slog.String("component", "app.SyncEngine")).
		WithGroup("cycle")

	logger.Info("sync cycle finished", slog.Int("fetched", 5), slog.Bool("changed", true))

	assert.Contains(t, console.String(), "component=app.SyncEngine")
	assert.Contains(t, console.String(), "cycle.fetched=5")

	entry := decodeEntry(t, file)
	assert.Equal(t, "app.SyncEngine", entry["component"])

	cycle, ok := entry["cycle"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 5, cycle["fetched"], 0)
	assert.Equal(t, true, cycle["changed"])
}

func TestMultiHandler_HandleJoinsErrors(t *testing.T) {
	var buf bytes.Buffer

	multi := NewMultiHandler(
		slog.NewJSONHandler(failingWriter{}, nil),
		slog.NewJSONHandler(&buf, nil),
	)

	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "quotes imported", 0))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, buf.String(), "quotes imported")
}
