package media

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/stream"
)

// MemoryDataProvider keeps its bytes in memory. Delete discards them in place.
type MemoryDataProvider struct {
	id    string
	mime  string
	guard streamGuard

	mu      sync.RWMutex
	data    []byte
	deleted bool
}

var _ DataProvider = (*MemoryDataProvider)(nil)

// NewMemoryDataProvider creates an unregistered in-memory provider.
func NewMemoryDataProvider(id, mimeType string) *MemoryDataProvider {
	if id == "" {
		id = NewID()
	}
	return &MemoryDataProvider{id: id, mime: mimeType}
}

func (p *MemoryDataProvider) ID() string       { return p.id }
func (p *MemoryDataProvider) MimeType() string { return p.mime }

// Size returns the number of stored bytes.
func (p *MemoryDataProvider) Size() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int64(len(p.data))
}

// Bytes returns a copy of the stored bytes.
func (p *MemoryDataProvider) Bytes() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return bytes.Clone(p.data)
}

// OpenInputStream returns a reader over a snapshot of the stored bytes.
func (p *MemoryDataProvider) OpenInputStream() (stream.Source, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	if err := p.guard.acquireRead(p.id); err != nil {
		return nil, err
	}

	p.mu.RLock()
	src := stream.FromBytes(p.data)
	p.mu.RUnlock()

	return &guardedSource{Source: src, release: p.guard.releaseRead}, nil
}

// OpenOutputStream returns a writer replacing the stored bytes on Close.
func (p *MemoryDataProvider) OpenOutputStream() (io.WriteCloser, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	if err := p.guard.acquireWrite(p.id); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	return &guardedWriter{
		Writer: buf,
		commit: func() error {
			defer p.guard.releaseWrite()
			p.mu.Lock()
			p.data = buf.Bytes()
			p.mu.Unlock()
			return nil
		},
	}, nil
}

// Delete discards the stored bytes.
func (p *MemoryDataProvider) Delete() error {
	if err := p.guard.checkIdle(p.id); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	p.deleted = true
	return nil
}

func (p *MemoryDataProvider) checkLive() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.deleted {
		return errors.State(component, fmt.Errorf("data provider %s has been deleted", p.id))
	}
	return nil
}
