package stream

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediaedit/internal/errors"
)

func TestSectionBounds(t *testing.T) {
	t.Parallel()

	src := FromBytes([]byte("0123456789"))

	_, err := NewSection(src, -1, 2)
	assert.True(t, errors.IsArgumentDomain(err))
	_, err = NewSection(src, 5, 6)
	assert.True(t, errors.IsArgumentDomain(err))
	_, err = NewSection(nil, 0, 0)
	assert.True(t, errors.IsArgumentDomain(err))

	sec, err := NewSection(src, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sec.Size())

	all, err := io.ReadAll(sec)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(all))
}

func TestSectionSeekAndReread(t *testing.T) {
	t.Parallel()

	sec, err := NewSection(FromBytes([]byte("abcdefgh")), 2, 5)
	require.NoError(t, err)

	pos, err := sec.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	buf := make([]byte, 10)
	n, err := sec.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "fg", string(buf[:n]))

	_, err = sec.Seek(-10, io.SeekCurrent)
	assert.True(t, errors.IsArgumentDomain(err))
}

func TestSectionsShareParentInSequence(t *testing.T) {
	t.Parallel()

	parent := []byte("hello, world")
	a, err := NewSection(FromBytes(parent), 7, 5)
	require.NoError(t, err)
	b, err := NewSection(FromBytes(parent), 0, 5)
	require.NoError(t, err)

	s, err := NewSequenceStream(a, b)
	require.NoError(t, err)

	all, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "worldhello", string(all))
}
