package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestSentinelMatchingThroughBuilder(t *testing.T) {
	sentinel := NewStd("stack is empty")
	err := State("undo", sentinel)

	assert.True(t, Is(err, sentinel))
	assert.True(t, IsState(err))
	assert.False(t, IsArgumentDomain(err))
	assert.Equal(t, "undo", err.GetComponent())

	wrapped := fmt.Errorf("undo failed: %w", err)
	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, IsState(wrapped))
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	inner := Incompatible("audio", "format mismatch")
	outer := New(fmt.Errorf("insert: %w", inner)).Component("audio").Build()

	assert.Equal(t, CategoryIncompatible, outer.Category)
	assert.True(t, IsIncompatible(outer))
}

func TestTaxonomyHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"argument", ArgumentDomain("pcm", "channels must be >= 1, got %d", 0), IsArgumentDomain},
		{"busy", ResourceBusy("media", "provider", "input stream open"), IsResourceBusy},
		{"not found", NotFound("media", "provider", "abc"), IsNotFound},
		{"incompatible", Incompatible("audio", "declared duration exceeds source"), IsIncompatible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestContextIsCopied(t *testing.T) {
	ee := New(NewStd("x")).Context("id", "a").Build()
	ctx := ee.GetContext()
	ctx["id"] = "b"
	assert.Equal(t, "a", ee.GetContext()["id"])
}

func TestReporterAndHooksReceiveErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	var hooked int
	AddErrorHook(func(*EnhancedError) { hooked++ })
	t.Cleanup(func() {
		SetTelemetryReporter(nil)
		ClearErrorHooks()
	})

	_ = New(NewStd("boom")).Category(CategoryFileIO).Build()

	require.Len(t, reporter.reported, 1)
	assert.Equal(t, 1, hooked)
	assert.Equal(t, CategoryFileIO, reporter.reported[0].Category)
}

func TestScrubMessageForPrivacy(t *testing.T) {
	scrubbed := scrubMessageForPrivacy("open /home/alice/project/data/x.pcm failed, token=abc123")
	assert.NotContains(t, scrubbed, "alice")
	assert.NotContains(t, scrubbed, "abc123")

	scrubbed = scrubMessageForPrivacy("GET https://example.com/a?dsn=secret")
	assert.True(t, strings.HasSuffix(scrubbed, "?[REDACTED]"))
}
