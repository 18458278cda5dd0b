package telemetry

import (
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/errors"
)

func TestInitDisabledIsNoop(t *testing.T) {
	require.NoError(t, Init(conf.Defaults(), "test", nil))
	assert.Nil(t, errors.GetTelemetryReporter())
	Flush()
}

func TestInitReportsEnhancedErrors(t *testing.T) {
	settings := conf.Defaults()
	settings.Telemetry.Enabled = true
	settings.Telemetry.DSN = "https://public@example.com/1"

	transport := NewRecordingTransport()
	require.NoError(t, Init(settings, "1.2.3", transport))
	t.Cleanup(Flush)

	_ = errors.Incompatible("audio", "sample rate 8000 does not match 44100")
	require.True(t, transport.WaitForEventCount(1, time.Second))

	ev := transport.Events()[0]
	assert.Equal(t, "audio", ev.Tags["component"])
	assert.Equal(t, "mediaedit@1.2.3", ev.Release)
	assert.Empty(t, ev.ServerName)
}

func TestPrivacyFilters(t *testing.T) {
	ev := &sentry.Event{
		ServerName: "workstation",
		User:       sentry.User{ID: "someone"},
		Tags:       map[string]string{"hostname": "h", "component": "cleaner"},
		Extra:      map[string]any{"component": "cleaner", "path": "/home/me"},
		Contexts:   map[string]sentry.Context{"os": {}, "trace": {}},
	}
	out := applyPrivacyFilters(ev)

	assert.Empty(t, out.ServerName)
	assert.True(t, out.User.IsEmpty())
	assert.Equal(t, map[string]string{"component": "cleaner"}, out.Tags)
	assert.Equal(t, map[string]any{"component": "cleaner"}, out.Extra)
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "trace")
}
