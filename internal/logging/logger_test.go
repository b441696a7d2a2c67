package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: FormatJSON, Output: &buf})

	ctx := context.Background()
	logger.WithComponent("walker").With("id", "main").Info(ctx, "template loaded", "modified", true)
	logger.Error(ctx, errors.New("boom"), "write failed")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, "template loaded", records[0]["msg"])
	assert.Equal(t, "walker", records[0]["component"])
	assert.Equal(t, "main", records[0]["id"])
	assert.Equal(t, true, records[0]["modified"])

	assert.Equal(t, "ERROR", records[1]["level"])
	assert.Equal(t, "boom", records[1]["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	ctx := context.Background()
	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, nil, "shown")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "shown", records[0]["msg"])
}

func TestAutoFormatFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))

	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: FormatAuto, Output: &buf})
	logger.Info(context.Background(), "hello")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: FormatText, Output: &buf})
	logger.Info(context.Background(), "hello", "id", "x")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "id=x")
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	op := StartOperation(logger, "build")
	d := op.End(context.Background())
	assert.GreaterOrEqual(t, int64(d), int64(0))

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "build", records[0]["operation"])
	assert.Contains(t, records[0], "duration_ms")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("x"), "discarded")
	})
}
