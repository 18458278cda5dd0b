package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediaedit/internal/errors"
)

// fill returns n bytes all set to v.
func fill(v byte, n int) []byte {
	return bytes.Repeat([]byte{v}, n)
}

// closeCounter records Close calls and optionally fails them.
type closeCounter struct {
	Source
	closed int
	err    error
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.err
}

func newTestSequence(t *testing.T) *SequenceStream {
	t.Helper()
	s, err := NewSequenceStream(FromBytes(fill('a', 10)), FromBytes(fill('b', 20)), FromBytes(fill('c', 5)))
	require.NoError(t, err)
	return s
}

func TestEmptySequenceIsRejected(t *testing.T) {
	t.Parallel()

	_, err := NewSequenceStream()
	require.Error(t, err)
	assert.True(t, errors.IsArgumentDomain(err))

	_, err = NewSequenceStream(FromBytes(nil), nil)
	assert.True(t, errors.IsArgumentDomain(err))
}

func TestLengthIsSumOfChildren(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)
	assert.Equal(t, int64(35), s.Len())
	assert.Equal(t, int64(0), s.Position())
}

func TestReadStaysInSecondChild(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)
	require.NoError(t, s.SetPosition(15))

	buf := make([]byte, 10)
	n, err := io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, fill('b', 10), buf)
	assert.Equal(t, int64(25), s.Position())
}

func TestReadCrossesChildren(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)
	require.NoError(t, s.SetPosition(8))

	buf := make([]byte, 24)
	n, err := io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, 24, n)

	want := append(append(fill('a', 2), fill('b', 20)...), fill('c', 2)...)
	assert.Equal(t, want, buf)
}

func TestReadAllAndShortReadAtEnd(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)
	all, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Len(t, all, 35)

	require.NoError(t, s.SetPosition(30))
	buf := make([]byte, 100)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSetPositionClampsToEnd(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)
	require.NoError(t, s.SetPosition(1000))
	assert.Equal(t, int64(35), s.Position())

	err := s.SetPosition(-1)
	assert.True(t, errors.IsArgumentDomain(err))
}

func TestSetPositionAtBoundaryLandsInNextChild(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)
	require.NoError(t, s.SetPosition(10))

	b := make([]byte, 1)
	_, err := s.Read(b)
	require.NoError(t, err)
	assert.Equal(t, byte('b'), b[0])
}

func TestSeek(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)

	pos, err := s.Seek(-5, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(30), pos)

	pos, err = s.Seek(-20, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)

	_, err = s.Seek(0, 42)
	assert.True(t, errors.IsArgumentDomain(err))
}

func TestLengthIsLive(t *testing.T) {
	t.Parallel()

	grow := &growingSource{data: fill('x', 4)}
	s, err := NewSequenceStream(FromBytes(fill('a', 2)), grow)
	require.NoError(t, err)
	assert.Equal(t, int64(6), s.Len())

	grow.data = append(grow.data, fill('y', 4)...)
	assert.Equal(t, int64(10), s.Len())
}

func TestWriteAndSetLengthAreRejected(t *testing.T) {
	t.Parallel()

	s := newTestSequence(t)
	_, err := s.Write([]byte("x"))
	assert.True(t, errors.IsArgumentDomain(err))
	assert.True(t, errors.IsArgumentDomain(s.SetLength(1)))
}

func TestCloseClosesEveryChild(t *testing.T) {
	t.Parallel()

	a := &closeCounter{Source: FromBytes(fill('a', 1))}
	b := &closeCounter{Source: FromBytes(fill('b', 1)), err: errors.NewStd("b failed")}
	c := &closeCounter{Source: FromBytes(fill('c', 1)), err: errors.NewStd("c failed")}

	s, err := NewSequenceStream(a, b, c)
	require.NoError(t, err)

	err = s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")
	assert.Contains(t, err.Error(), "c failed")
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 1, c.closed)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, a.closed)

	_, err = s.Read(make([]byte, 1))
	assert.True(t, errors.IsState(err))
}

func TestNestedSequence(t *testing.T) {
	t.Parallel()

	inner, err := NewSequenceStream(FromBytes([]byte("ab")), FromBytes([]byte("cd")))
	require.NoError(t, err)
	outer, err := NewSequenceStream(inner, FromBytes([]byte("ef")))
	require.NoError(t, err)

	all, err := io.ReadAll(outer)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(all))
}

// growingSource is a Source whose size follows its backing slice.
type growingSource struct {
	data []byte
	pos  int64
}

func (g *growingSource) Read(p []byte) (int, error) {
	if g.pos >= int64(len(g.data)) {
		return 0, io.EOF
	}
	n := copy(p, g.data[g.pos:])
	g.pos += int64(n)
	return n, nil
}

func (g *growingSource) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		g.pos = offset
	case io.SeekCurrent:
		g.pos += offset
	case io.SeekEnd:
		g.pos = int64(len(g.data)) + offset
	}
	return g.pos, nil
}

func (g *growingSource) Close() error { return nil }
func (g *growingSource) Size() int64  { return int64(len(g.data)) }
