package media

import (
	"io"
	"sync"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/stream"
)

// streamGuard tracks open streams on a provider.
type streamGuard struct {
	mu      sync.Mutex
	readers int
	writer  bool
}

func (g *streamGuard) acquireRead(providerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writer {
		return errors.ResourceBusy(component, providerID, "data provider %s has an open output stream", providerID)
	}
	g.readers++
	return nil
}

func (g *streamGuard) releaseRead() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readers > 0 {
		g.readers--
	}
}

func (g *streamGuard) acquireWrite(providerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writer {
		return errors.ResourceBusy(component, providerID, "data provider %s already has an open output stream", providerID)
	}
	if g.readers > 0 {
		return errors.ResourceBusy(component, providerID, "data provider %s has %d open input streams", providerID, g.readers)
	}
	g.writer = true
	return nil
}

func (g *streamGuard) releaseWrite() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writer = false
}

// checkIdle fails when any stream is open.
func (g *streamGuard) checkIdle(providerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writer || g.readers > 0 {
		return errors.ResourceBusy(component, providerID, "data provider %s has open streams", providerID)
	}
	return nil
}

// guardedSource releases its read slot exactly once on Close.
type guardedSource struct {
	stream.Source
	once    sync.Once
	release func()
}

func (s *guardedSource) Close() error {
	err := s.Source.Close()
	s.once.Do(s.release)
	return err
}

// guardedWriter runs commit and releases its write slot exactly once on Close.
type guardedWriter struct {
	io.Writer
	once   sync.Once
	commit func() error
	err    error
}

func (w *guardedWriter) Close() error {
	w.once.Do(func() { w.err = w.commit() })
	return w.err
}
