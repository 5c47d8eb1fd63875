// Package logging tests for structured logging.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

// =====================================================
// Logger Creation and Initialization Tests
// =====================================================

func TestInit_idempotent(t *testing.T) {
	global = nil
	once = sync.Once{}

	var buf1, buf2 bytes.Buffer
	Init(&Config{Level: LevelInfo, Format: FormatJSON, Output: &buf1})
	first := Get()

	Init(&Config{Level: LevelDebug, Format: FormatJSON, Output: &buf2})
	assert.Same(t, first, Get())

	Info("hello")
	assert.Contains(t, buf1.String(), "hello")
	assert.Empty(t, buf2.String())
}

func TestGet_default(t *testing.T) {
	global = nil
	once = sync.Once{}

	require.NotNil(t, Get())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		" warn ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

// =====================================================
// Output Tests
// =====================================================

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})

	l.Info("artifact downloaded", map[string]interface{}{
		"meeting_id": "m-1",
		"artifact":   "summary",
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "artifact downloaded", entries[0]["message"])
	assert.Equal(t, "m-1", entries[0]["meeting_id"])
	assert.Equal(t, "summary", entries[0]["artifact"])
	assert.Contains(t, entries[0], "time")
}

func TestLogger_MergesContexts(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})

	l.Warn("poll failed", map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0]["a"])
	assert.EqualValues(t, 2, entries[0]["b"])
}

func TestLogger_ErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})

	l.ErrorWithCode("list meetings failed", "TRANSPORT_ERROR", errors.New("dial tcp"), nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "TRANSPORT_ERROR", entries[0]["code"])
	assert.Equal(t, "dial tcp", entries[0]["error"])
}

func TestLogger_MinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelInfo, Format: FormatJSON, Output: &buf}).
		With(map[string]interface{}{"component": "poller"})

	l.Info("started")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "poller", entries[0]["component"])
}

func TestLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelInfo, Format: FormatConsole, Output: &buf})

	l.Info("console line")

	assert.Contains(t, buf.String(), "console line")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}
