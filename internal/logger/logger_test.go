package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerWritesModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("undo").Module("manager")

	log.Info("command executed", String("command", "insert"), Int("depth", 2))

	out := buf.String()
	assert.Contains(t, out, "module=undo.manager")
	assert.Contains(t, out, "command=insert")
	assert.Contains(t, out, "depth=2")
	assert.Contains(t, out, "command executed")
}

func TestSlogLoggerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, time.UTC)

	log.Debug("hidden")
	log.Info("hidden")
	log.Log(LogLevelInfo, "hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestTraceLevelIsNamed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC)
	log.Trace("very verbose")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := NewSlogLogger(&buf, LogLevelInfo, time.UTC).Module("cleaner")
	child := parent.With(String("pass", "sweep"))

	child.Info("child")
	parent.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "pass=sweep")
	assert.NotContains(t, lines[1], "pass=sweep")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(t.Context(), "abc-123")
	log.WithContext(ctx).Info("traced")
	log.WithContext(t.Context()).Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=abc-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestFieldToAttr(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.235, fieldToAttr(Float64("ratio", 1.23456)).Value.Float64(), 1e-9)
	assert.Equal(t, "1.5s", fieldToAttr(Duration("elapsed", 1500*time.Millisecond)).Value.String())
	assert.Nil(t, Error(nil).Value)
}

func TestCentralLoggerFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"stream": "error"},
	})
	require.NoError(t, err)

	cl.Module("media").Debug("provider created", String("provider_id", "p1"))
	cl.Module("stream").Warn("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "media", record["module"])
	assert.Equal(t, "p1", record["provider_id"])
	assert.Equal(t, "provider created", record["msg"])
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}
