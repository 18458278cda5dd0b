package stream

import (
	"bytes"
	"io"

	"github.com/tphakala/mediaedit/internal/errors"
)

// Section is a bounded window [off, off+n) of a parent source. Closing a
// section closes the parent.
type Section struct {
	src  Source
	base int64
	n    int64
	pos  int64
}

var _ Source = (*Section)(nil)

// NewSection returns a view of n bytes of src starting at off.
func NewSection(src Source, off, n int64) (*Section, error) {
	if src == nil {
		return nil, errors.ArgumentDomain(component, "section source is nil")
	}
	if off < 0 || n < 0 {
		return nil, errors.ArgumentDomain(component, "section offset and length must not be negative, got %d and %d", off, n)
	}
	if size := src.Size(); off+n > size {
		return nil, errors.ArgumentDomain(component, "section [%d, %d) exceeds source size %d", off, off+n, size)
	}
	return &Section{src: src, base: off, n: n}, nil
}

// Size returns the section length.
func (s *Section) Size() int64 { return s.n }

// Read reads from the parent within the section bounds.
func (s *Section) Read(p []byte) (int, error) {
	if s.pos >= s.n {
		return 0, io.EOF
	}
	if _, err := s.src.Seek(s.base+s.pos, io.SeekStart); err != nil {
		return 0, err
	}
	if remaining := s.n - s.pos; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	m, err := s.src.Read(p)
	s.pos += int64(m)
	if err == io.EOF && m > 0 {
		err = nil
	}
	return m, err
}

// Seek implements io.Seeker relative to the section.
func (s *Section) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = s.n + offset
	default:
		return 0, errors.ArgumentDomain(component, "invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.ArgumentDomain(component, "negative seek position %d", abs)
	}
	s.pos = abs
	return abs, nil
}

// Close closes the parent source.
func (s *Section) Close() error {
	return s.src.Close()
}

// memorySource adapts a byte slice to Source.
type memorySource struct {
	*bytes.Reader
}

func (memorySource) Close() error { return nil }

// FromBytes returns an in-memory Source over b. The slice is not copied.
func FromBytes(b []byte) Source {
	return memorySource{bytes.NewReader(b)}
}
