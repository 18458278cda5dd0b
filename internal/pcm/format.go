// Package pcm describes raw PCM audio formats and converts between
// playback time and byte offsets.
//
// Conversions follow one rounding rule everywhere: time to bytes truncates
// to a whole sample block, bytes to time rounds up to the next nanosecond.
// A block-aligned byte count therefore survives a bytes->time->bytes round
// trip unchanged, and any time value lands within one block of itself.
package pcm

import (
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/tphakala/mediaedit/internal/errors"
)

const component = "pcm"

// Default format of new audio media: mono 16-bit at 44.1 kHz.
const (
	DefaultChannels   = 1
	DefaultSampleRate = 44100
	DefaultBitDepth   = 16
)

// Limits representable in a RIFF/WAV header.
const (
	MaxChannels = 1<<16 - 1
	MaxBitDepth = 64
)

const nanosPerSecond = uint64(time.Second)

// FormatInfo is a PCM format descriptor: channel count, sample rate and
// bit depth. Setters reject invalid values before mutating anything and
// notify observers after a successful change.
type FormatInfo struct {
	channels   int
	sampleRate int
	bitDepth   int

	mu        sync.Mutex
	observers map[int]func(*FormatInfo)
	nextObsID int
}

// NewFormatInfo returns a validated format descriptor.
func NewFormatInfo(channels, sampleRate, bitDepth int) (*FormatInfo, error) {
	if err := validateChannels(channels); err != nil {
		return nil, err
	}
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateBitDepth(bitDepth); err != nil {
		return nil, err
	}
	return &FormatInfo{channels: channels, sampleRate: sampleRate, bitDepth: bitDepth}, nil
}

// Default returns the default format.
func Default() *FormatInfo {
	return &FormatInfo{channels: DefaultChannels, sampleRate: DefaultSampleRate, bitDepth: DefaultBitDepth}
}

// MustFormat is NewFormatInfo for constant arguments; it panics on invalid input.
func MustFormat(channels, sampleRate, bitDepth int) *FormatInfo {
	f, err := NewFormatInfo(channels, sampleRate, bitDepth)
	if err != nil {
		panic(err)
	}
	return f
}

func validateChannels(channels int) error {
	if channels < 1 || channels > MaxChannels {
		return errors.ArgumentDomain(component, "channels must be between 1 and %d, got %d", MaxChannels, channels)
	}
	return nil
}

func validateSampleRate(sampleRate int) error {
	if sampleRate < 1 || uint64(sampleRate) > uint64(^uint32(0)) {
		return errors.ArgumentDomain(component, "sample rate must be between 1 and %d Hz, got %d", ^uint32(0), sampleRate)
	}
	return nil
}

func validateBitDepth(bitDepth int) error {
	if bitDepth < 8 || bitDepth%8 != 0 || bitDepth > MaxBitDepth {
		return errors.ArgumentDomain(component, "bit depth must be a multiple of 8 between 8 and %d, got %d", MaxBitDepth, bitDepth)
	}
	return nil
}

// Channels returns the number of interleaved channels.
func (f *FormatInfo) Channels() int { return f.channels }

// SampleRate returns the sample rate in Hz.
func (f *FormatInfo) SampleRate() int { return f.sampleRate }

// BitDepth returns the number of bits per sample.
func (f *FormatInfo) BitDepth() int { return f.bitDepth }

// SetChannels changes the channel count.
func (f *FormatInfo) SetChannels(channels int) error {
	if err := validateChannels(channels); err != nil {
		return err
	}
	if f.channels == channels {
		return nil
	}
	f.channels = channels
	f.notify()
	return nil
}

// SetSampleRate changes the sample rate.
func (f *FormatInfo) SetSampleRate(sampleRate int) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}
	if f.sampleRate == sampleRate {
		return nil
	}
	f.sampleRate = sampleRate
	f.notify()
	return nil
}

// SetBitDepth changes the bit depth.
func (f *FormatInfo) SetBitDepth(bitDepth int) error {
	if err := validateBitDepth(bitDepth); err != nil {
		return err
	}
	if f.bitDepth == bitDepth {
		return nil
	}
	f.bitDepth = bitDepth
	f.notify()
	return nil
}

// Observe registers fn to be called with a snapshot after every successful
// change. The returned function removes the observer.
func (f *FormatInfo) Observe(fn func(*FormatInfo)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.observers == nil {
		f.observers = make(map[int]func(*FormatInfo))
	}
	id := f.nextObsID
	f.nextObsID++
	f.observers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.observers, id)
	}
}

func (f *FormatInfo) notify() {
	f.mu.Lock()
	fns := make([]func(*FormatInfo), 0, len(f.observers))
	for _, fn := range f.observers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(f.Copy())
	}
}

// Copy returns an independent descriptor with the same fields and no observers.
func (f *FormatInfo) Copy() *FormatInfo {
	return &FormatInfo{channels: f.channels, sampleRate: f.sampleRate, bitDepth: f.bitDepth}
}

// BlockAlign is the size in bytes of one sample frame across all channels.
func (f *FormatInfo) BlockAlign() int {
	return f.channels * (f.bitDepth / 8)
}

// ByteRate is the number of PCM bytes per second of audio.
func (f *FormatInfo) ByteRate() int64 {
	return int64(f.channels) * int64(f.sampleRate) * int64(f.bitDepth/8)
}

// IsCompatibleWith reports whether channels, sample rate and bit depth all
// match exactly. Only compatible payloads may be concatenated or merged.
func (f *FormatInfo) IsCompatibleWith(other *FormatInfo) bool {
	if f == nil || other == nil {
		return false
	}
	return f.channels == other.channels &&
		f.sampleRate == other.sampleRate &&
		f.bitDepth == other.bitDepth
}

// AlignBytes floors n to a multiple of the block size. Negative input yields 0.
func (f *FormatInfo) AlignBytes(n int64) int64 {
	if n <= 0 {
		return 0
	}
	block := int64(f.BlockAlign())
	return n - n%block
}

// IsAligned reports whether n is a whole number of sample frames.
func (f *FormatInfo) IsAligned(n int64) bool {
	return n >= 0 && n%int64(f.BlockAlign()) == 0
}

// BytesForDuration converts a playback duration to a block-aligned byte
// count, truncating partial blocks. Negative durations yield 0.
func (f *FormatInfo) BytesForDuration(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(d), uint64(f.ByteRate()))
	if hi >= nanosPerSecond {
		// beyond any representable offset
		return f.AlignBytes(int64(^uint64(0) >> 1))
	}
	q, _ := bits.Div64(hi, lo, nanosPerSecond)
	if q > uint64(^uint64(0)>>1) {
		q = ^uint64(0) >> 1
	}
	return f.AlignBytes(int64(q))
}

// DurationForBytes converts a byte count to playback time, rounding up to
// the next nanosecond. Negative counts yield 0.
func (f *FormatInfo) DurationForBytes(n int64) time.Duration {
	if n <= 0 {
		return 0
	}
	rate := uint64(f.ByteRate())
	hi, lo := bits.Mul64(uint64(n), nanosPerSecond)
	if hi >= rate {
		return time.Duration(^uint64(0) >> 1)
	}
	q, r := bits.Div64(hi, lo, rate)
	if r > 0 {
		q++
	}
	if q > uint64(^uint64(0)>>1) {
		q = ^uint64(0) >> 1
	}
	return time.Duration(q)
}

// BlockDuration is the playback time of a single sample frame, rounded up.
func (f *FormatInfo) BlockDuration() time.Duration {
	return f.DurationForBytes(int64(f.BlockAlign()))
}

// String renders the format for logs, e.g. "2ch 44100Hz 16bit".
func (f *FormatInfo) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%dch %dHz %dbit", f.channels, f.sampleRate, f.bitDepth)
}
