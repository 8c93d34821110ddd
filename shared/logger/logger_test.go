package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		checkFunc func(t *testing.T, logger *Logger, output *bytes.Buffer)
	}{
		{
			name:   "json debug keeps debug lines",
			config: Config{Level: "debug", Format: "json"},
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Debug("Screening translator", slog.Int64("translator_id", 7))

				entries := decodeLines(t, output)
				require.Len(t, entries, 1)
				assert.Equal(t, "DEBUG", entries[0]["level"])
				assert.Equal(t, float64(7), entries[0]["translator_id"])
			},
		},
		{
			name:   "json warn drops info",
			config: Config{Level: "warn", Format: "json"},
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Info("Booking updated")
				logger.Warn("Booking past due", slog.Int64("job_id", 3))

				entries := decodeLines(t, output)
				require.Len(t, entries, 1)
				assert.Equal(t, "WARN", entries[0]["level"])
				assert.Equal(t, "Booking past due", entries[0]["msg"])
			},
		},
		{
			name:   "console uses tint levels",
			config: Config{Level: "info", Format: "console", NoColor: true, TimeFormat: time.TimeOnly},
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Info("Push send for job")

				assert.Contains(t, output.String(), "INF")
				assert.Contains(t, output.String(), "Push send for job")
			},
		},
		{
			name:   "source location",
			config: Config{Level: "info", Format: "json", EnableSource: true},
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Info("Booking created")

				entries := decodeLines(t, output)
				require.Len(t, entries, 1)
				source, ok := entries[0]["source"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, source, "file")
				assert.Contains(t, source, "line")
			},
		},
		{
			name:   "unknown format falls back to json",
			config: Config{Level: "info", Format: "xml"},
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Info("Booking reopened")
				assert.Len(t, decodeLines(t, output), 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			config := tt.config
			config.writer = output

			logger, err := New(&config)
			require.NoError(t, err)
			require.NotNil(t, logger)

			tt.checkFunc(t, logger, output)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("Booking updated", slog.Int64("job_id", 12))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id":12`)
}

func TestNew_FileOutputError(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "booking.log")})
	assert.Error(t, err)
}

func TestNewDefaultAndNop(t *testing.T) {
	assert.NotNil(t, NewDefault().Logger)

	nop := NewNop()
	require.NotNil(t, nop.Logger)
	assert.NotPanics(t, func() { nop.Info("discarded") })
	assert.NoError(t, nop.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLogger_Children(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "json", writer: output})
	require.NoError(t, err)

	logger.Component("lifecycle").Info("Booking updated")
	logger.WithGroup("job").Info("Accepted", slog.Int64("id", 4))
	logger.WithAttrs(slog.String("request_id", "r-1")).Info("Handled")
	logger.With("user_id", 9).Info("Acting user")

	entries := decodeLines(t, output)
	require.Len(t, entries, 4)

	assert.Equal(t, "lifecycle", entries[0]["component"])

	group, ok := entries[1]["job"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), group["id"])

	assert.Equal(t, "r-1", entries[2]["request_id"])
	assert.Equal(t, float64(9), entries[3]["user_id"])
}
