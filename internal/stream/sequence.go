// Package stream presents several physical byte sources as one continuous,
// read-only stream.
package stream

import (
	"io"

	"github.com/tphakala/mediaedit/internal/errors"
)

const component = "stream"

// Source is a seekable, closable byte source with a known current size.
type Source interface {
	io.ReadSeekCloser
	Size() int64
}

// SequenceStream concatenates an ordered, non-empty list of child sources.
// Its length is the live sum of the children's sizes, so it tracks children
// that grow or shrink after construction. It is read-only.
type SequenceStream struct {
	children []Source
	cur      int   // index of the current child
	local    int64 // read position inside the current child
	needSeek bool  // current child must be repositioned before the next read
	closed   bool
}

var _ Source = (*SequenceStream)(nil)

// NewSequenceStream builds a stream over children in order.
func NewSequenceStream(children ...Source) (*SequenceStream, error) {
	if len(children) == 0 {
		return nil, errors.ArgumentDomain(component, "sequence stream requires at least one child")
	}
	for i, c := range children {
		if c == nil {
			return nil, errors.ArgumentDomain(component, "sequence stream child %d is nil", i)
		}
	}
	return &SequenceStream{
		children: append([]Source(nil), children...),
		needSeek: true,
	}, nil
}

// Children returns the child sources in order.
func (s *SequenceStream) Children() []Source {
	return append([]Source(nil), s.children...)
}

// Len returns the sum of the current child sizes.
func (s *SequenceStream) Len() int64 {
	var total int64
	for _, c := range s.children {
		total += c.Size()
	}
	return total
}

// Size implements Source so sequences can be nested.
func (s *SequenceStream) Size() int64 { return s.Len() }

// Position returns the bytes before the current child plus the position
// inside it.
func (s *SequenceStream) Position() int64 {
	var before int64
	for _, c := range s.children[:s.cur] {
		before += c.Size()
	}
	return before + s.local
}

// SetPosition moves to p by walking children by cumulative length. Targets
// beyond the end clamp to the end of the last child.
func (s *SequenceStream) SetPosition(p int64) error {
	if s.closed {
		return errors.State(component, errors.NewStd("sequence stream is closed"))
	}
	if p < 0 {
		return errors.ArgumentDomain(component, "position must not be negative, got %d", p)
	}

	last := len(s.children) - 1
	for i, c := range s.children {
		size := c.Size()
		if p < size || i == last {
			s.cur = i
			s.local = min(p, size)
			s.needSeek = true
			return nil
		}
		p -= size
	}
	return nil
}

// Seek implements io.Seeker on top of SetPosition.
func (s *SequenceStream) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.Position() + offset
	case io.SeekEnd:
		abs = s.Len() + offset
	default:
		return 0, errors.ArgumentDomain(component, "invalid whence %d", whence)
	}
	if err := s.SetPosition(abs); err != nil {
		return 0, err
	}
	return s.Position(), nil
}

// Read reads from the current child and moves on to the next child at
// offset zero when it is exhausted. It returns a short read at the end of
// the final child and io.EOF once nothing is left.
func (s *SequenceStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, errors.State(component, errors.NewStd("sequence stream is closed"))
	}
	if len(p) == 0 {
		return 0, nil
	}

	last := len(s.children) - 1
	n := 0
	for n < len(p) {
		child := s.children[s.cur]
		remaining := child.Size() - s.local
		if remaining <= 0 {
			if s.cur == last {
				break
			}
			s.advance()
			continue
		}

		if s.needSeek {
			if _, err := child.Seek(s.local, io.SeekStart); err != nil {
				return n, err
			}
			s.needSeek = false
		}

		want := min(int64(len(p)-n), remaining)
		m, err := child.Read(p[n : n+int(want)])
		n += m
		s.local += int64(m)

		if err != nil && err != io.EOF {
			return n, err
		}
		if m == 0 || err == io.EOF {
			// child delivered less than its reported size
			if s.cur == last {
				break
			}
			s.advance()
		}
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *SequenceStream) advance() {
	s.cur++
	s.local = 0
	s.needSeek = true
}

// Write always fails; the stream is read-only.
func (s *SequenceStream) Write([]byte) (int, error) {
	return 0, errors.ArgumentDomain(component, "sequence stream is read-only")
}

// SetLength always fails; the length is derived from the children.
func (s *SequenceStream) SetLength(int64) error {
	return errors.ArgumentDomain(component, "sequence stream length cannot be set")
}

// Close closes every child and reports all failures together.
func (s *SequenceStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, c := range s.children {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
