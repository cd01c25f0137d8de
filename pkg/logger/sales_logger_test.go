package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Output: &buf, Service: "test"})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-1")

	log.WithContext(ctx).
		WithFields(map[string]any{"business_id": 7}).
		WithError(errors.New("boom")).
		WithDuration(1500*time.Microsecond).
		Warn("charged %d tokens", 5)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "charged 5 tokens", entry["message"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.EqualValues(t, 7, entry["business_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.EqualValues(t, 1.5, entry["duration_ms"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Error("shown")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "sales", entry["service"])
}

func TestLogger_NilSafeHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	assert.Same(t, log, log.WithError(nil))
	assert.Same(t, log, log.WithFields(nil))

	log.WithContext(nil).Info("message with %s", "no args consumed")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "message with no args consumed", entry["message"])
}

func TestDefault_ConcurrentFirstUse(t *testing.T) {
	var wg sync.WaitGroup
	loggers := make([]*Logger, 8)
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = Default()
		}(i)
	}
	wg.Wait()

	for _, l := range loggers {
		assert.Same(t, loggers[0], l)
	}
}

func TestWithContext_IgnoresPlainStringKeys(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	type plainKey string
	ctx := context.WithValue(context.Background(), plainKey("request_id"), "req-1")
	log.WithContext(ctx).Info("no ids")

	entry := decodeLine(t, &buf)
	assert.NotContains(t, entry, "request_id")
}
