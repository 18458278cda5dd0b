// Package telemetry wires optional Sentry error reporting into the error
// package. Reporting is off unless enabled in settings with a DSN.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
)

const flushTimeout = 2 * time.Second

var (
	mu          sync.Mutex
	initialized bool
)

// Init configures Sentry from settings and installs the error reporter.
// It is a no-op when telemetry is disabled. transport may be nil to use the
// default HTTP transport.
func Init(settings *conf.Settings, version string, transport sentry.Transport) error {
	if settings == nil || !settings.Telemetry.Enabled {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Telemetry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("mediaedit@%s", version),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized = true
	logger.Global().Module("telemetry").Info("error reporting enabled",
		logger.String("release", version))
	return nil
}

// Flush waits for queued events and detaches the reporter.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		return
	}
	sentry.Flush(flushTimeout)
	errors.SetTelemetryReporter(nil)
	initialized = false
}

// applyPrivacyFilters strips host and user identification from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
