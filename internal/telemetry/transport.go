package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// RecordingTransport is a sentry.Transport that keeps events in memory.
// Commands use it for dry runs; tests use it to assert on reports.
type RecordingTransport struct {
	mu     sync.RWMutex
	events []*sentry.Event
	closed bool
}

var _ sentry.Transport = (*RecordingTransport)(nil)

// NewRecordingTransport creates an empty recording transport.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{}
}

//nolint:gocritic // hugeParam: interface requirement, cannot change signature
func (t *RecordingTransport) Configure(_ sentry.ClientOptions) {}

func (t *RecordingTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.events = append(t.events, event)
}

func (t *RecordingTransport) Flush(_ time.Duration) bool { return true }

func (t *RecordingTransport) FlushWithContext(ctx context.Context) bool {
	return ctx.Err() == nil
}

func (t *RecordingTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// Events returns a copy of the recorded events.
func (t *RecordingTransport) Events() []*sentry.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	events := make([]*sentry.Event, len(t.events))
	copy(events, t.events)
	return events
}

// WaitForEventCount polls until count events arrived or timeout elapses.
func (t *RecordingTransport) WaitForEventCount(count int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		t.mu.RLock()
		n := len(t.events)
		t.mu.RUnlock()
		if n >= count {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
