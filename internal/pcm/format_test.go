package pcm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediaedit/internal/errors"
)

func TestNewFormatInfoValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                           string
		channels, sampleRate, bitDepth int
		wantErr                        bool
	}{
		{"cd quality", 2, 44100, 16, false},
		{"mono 8-bit", 1, 8000, 8, false},
		{"24-bit", 2, 48000, 24, false},
		{"zero channels", 0, 44100, 16, true},
		{"negative rate", 1, -1, 16, true},
		{"zero rate", 1, 0, 16, true},
		{"bit depth not multiple of 8", 1, 44100, 12, true},
		{"bit depth zero", 1, 44100, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := NewFormatInfo(tt.channels, tt.sampleRate, tt.bitDepth)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsArgumentDomain(err))
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.channels, f.Channels())
		})
	}
}

func TestDerivedValues(t *testing.T) {
	t.Parallel()

	f := MustFormat(2, 44100, 16)
	assert.Equal(t, 4, f.BlockAlign())
	assert.Equal(t, int64(176400), f.ByteRate())
	assert.Equal(t, "2ch 44100Hz 16bit", f.String())
}

func TestCompatibility(t *testing.T) {
	t.Parallel()

	a := MustFormat(2, 44100, 16)
	assert.True(t, a.IsCompatibleWith(MustFormat(2, 44100, 16)))
	assert.False(t, a.IsCompatibleWith(MustFormat(1, 44100, 16)))
	assert.False(t, a.IsCompatibleWith(MustFormat(2, 48000, 16)))
	assert.False(t, a.IsCompatibleWith(MustFormat(2, 44100, 24)))
	assert.False(t, a.IsCompatibleWith(nil))
}

func TestSetterRejectsBeforeMutation(t *testing.T) {
	t.Parallel()

	f := MustFormat(2, 44100, 16)
	var notified int
	f.Observe(func(*FormatInfo) { notified++ })

	require.Error(t, f.SetChannels(0))
	require.Error(t, f.SetSampleRate(0))
	require.Error(t, f.SetBitDepth(7))
	assert.Equal(t, 2, f.Channels())
	assert.Equal(t, 44100, f.SampleRate())
	assert.Equal(t, 16, f.BitDepth())
	assert.Zero(t, notified)
}

func TestObserverReceivesSnapshot(t *testing.T) {
	t.Parallel()

	f := MustFormat(1, 44100, 16)
	var seen []*FormatInfo
	cancel := f.Observe(func(snap *FormatInfo) { seen = append(seen, snap) })

	require.NoError(t, f.SetChannels(2))
	require.NoError(t, f.SetChannels(2)) // unchanged, no notification
	require.NoError(t, f.SetSampleRate(48000))

	require.Len(t, seen, 2)
	assert.Equal(t, 2, seen[0].Channels())
	assert.Equal(t, 44100, seen[0].SampleRate())
	assert.Equal(t, 48000, seen[1].SampleRate())

	cancel()
	require.NoError(t, f.SetBitDepth(24))
	assert.Len(t, seen, 2)
}

func TestBytesForDurationTruncatesToBlock(t *testing.T) {
	t.Parallel()

	f := MustFormat(2, 44100, 16) // 176400 B/s, 4-byte blocks

	assert.Equal(t, int64(176400), f.BytesForDuration(time.Second))
	assert.Equal(t, int64(0), f.BytesForDuration(-time.Second))
	assert.Equal(t, int64(0), f.BytesForDuration(time.Nanosecond))

	// 10 microseconds is 1.764 bytes which truncates to zero blocks
	assert.Equal(t, int64(0), f.BytesForDuration(10*time.Microsecond))
	// 100 microseconds is 17.64 bytes, truncated to 16
	assert.Equal(t, int64(16), f.BytesForDuration(100*time.Microsecond))
}

func TestDurationForBytesRoundsUp(t *testing.T) {
	t.Parallel()

	f := MustFormat(2, 44100, 16)

	assert.Equal(t, time.Second, f.DurationForBytes(176400))
	assert.Equal(t, time.Duration(0), f.DurationForBytes(-4))
	// 4 bytes is 22675.736... ns
	assert.Equal(t, time.Duration(22676), f.DurationForBytes(4))
	assert.Equal(t, time.Duration(22676), f.BlockDuration())
}

func TestRoundTripIsExactForAlignedBytes(t *testing.T) {
	t.Parallel()

	formats := []*FormatInfo{
		MustFormat(1, 8000, 8),
		MustFormat(2, 44100, 16),
		MustFormat(2, 48000, 24),
		MustFormat(6, 96000, 32),
		MustFormat(1, 22050, 16),
	}

	for _, f := range formats {
		block := int64(f.BlockAlign())
		for _, blocks := range []int64{0, 1, 2, 3, 7, 441, 44099, 44100, 1234567, 1 << 30} {
			n := blocks * block
			d := f.DurationForBytes(n)
			assert.Equal(t, n, f.BytesForDuration(d), "format %s, %d bytes", f, n)
		}
	}
}

func TestRoundTripConvergesWithinOneBlock(t *testing.T) {
	t.Parallel()

	f := MustFormat(2, 44100, 16)
	for _, d := range []time.Duration{1, 999, 22676, time.Millisecond, 1234567 * time.Microsecond, time.Hour} {
		back := f.DurationForBytes(f.BytesForDuration(d))
		assert.LessOrEqual(t, back, d)
		assert.Less(t, d-back, f.BlockDuration()+1)
	}
}

func TestLongDurationsDoNotOverflow(t *testing.T) {
	t.Parallel()

	f := MustFormat(8, 192000, 32)
	n := f.BytesForDuration(48 * time.Hour)
	assert.Equal(t, int64(48*3600)*f.ByteRate(), n)
	assert.Equal(t, 48*time.Hour, f.DurationForBytes(n))
}

func TestAlignBytes(t *testing.T) {
	t.Parallel()

	f := MustFormat(2, 44100, 24) // 6-byte blocks
	assert.Equal(t, int64(0), f.AlignBytes(-3))
	assert.Equal(t, int64(0), f.AlignBytes(5))
	assert.Equal(t, int64(6), f.AlignBytes(11))
	assert.True(t, f.IsAligned(12))
	assert.False(t, f.IsAligned(13))
}

func TestCopyIsIndependent(t *testing.T) {
	t.Parallel()

	f := MustFormat(2, 44100, 16)
	c := f.Copy()
	require.NoError(t, c.SetChannels(1))
	assert.Equal(t, 2, f.Channels())
	assert.True(t, Default().IsCompatibleWith(MustFormat(DefaultChannels, DefaultSampleRate, DefaultBitDepth)))
}
