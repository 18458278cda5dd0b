// Package audio implements PCM audio payloads: an ordered list of clips,
// each a byte range of raw PCM held by a data provider, with format-aware
// reads and non-destructive edits. Providers are never modified once
// written; every edit stages new bytes into a fresh provider and rewrites
// the clip list.
package audio

import (
	"fmt"
	"slices"
	"time"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/pcm"
	"github.com/tphakala/mediaedit/internal/stream"
)

const component = "audio"

// Clip is the byte range [Begin, End) of raw PCM stored in Provider.
type Clip struct {
	Provider media.DataProvider
	Begin    int64
	End      int64
}

// Len returns the clip length in bytes.
func (c Clip) Len() int64 { return c.End - c.Begin }

// MediaData is an audio payload with a fixed PCM format.
type MediaData struct {
	id     string
	format *pcm.FormatInfo
	clips  []Clip

	registry  *media.Manager
	providers *media.ProviderManager
	inMemory  bool
	log       logger.Logger
}

var _ media.MediaData = (*MediaData)(nil)

// Option configures a MediaData.
type Option func(*MediaData)

// WithMemoryStorage stages edits into in-memory providers instead of files.
func WithMemoryStorage() Option {
	return func(m *MediaData) { m.inMemory = true }
}

// WithLogger sets the logger used for edit diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(m *MediaData) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates an empty audio payload and registers it. A nil format means
// the default format.
func New(registry *media.Manager, providers *media.ProviderManager, format *pcm.FormatInfo, opts ...Option) (*MediaData, error) {
	m, err := newUnregistered(registry, providers, format, opts...)
	if err != nil {
		return nil, err
	}
	if err := registry.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Restore recreates a registered payload with a known identity and clip
// list, for example when loading a saved project.
func Restore(registry *media.Manager, providers *media.ProviderManager, id string, format *pcm.FormatInfo, clips []Clip, opts ...Option) (*MediaData, error) {
	if id == "" {
		return nil, errors.ArgumentDomain(component, "audio media id must not be empty")
	}
	m, err := newUnregistered(registry, providers, format, opts...)
	if err != nil {
		return nil, err
	}
	m.id = id
	for i, c := range clips {
		if err := m.validateClip(c); err != nil {
			return nil, errors.New(err).
				Component(component).
				Context("clip_index", i).
				Build()
		}
	}
	m.clips = slices.Clone(clips)
	if err := registry.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

func newUnregistered(registry *media.Manager, providers *media.ProviderManager, format *pcm.FormatInfo, opts ...Option) (*MediaData, error) {
	if registry == nil || providers == nil {
		return nil, errors.ArgumentDomain(component, "audio media requires a media registry and a provider registry")
	}
	if format == nil {
		format = pcm.Default()
	}
	m := &MediaData{
		id:        media.NewID(),
		format:    format.Copy(),
		registry:  registry,
		providers: providers,
		log:       logger.Global().Module(component),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// detached returns an unregistered payload sharing m's storage settings. It
// keeps clips reachable for the garbage collector while no registered
// payload references them.
func (m *MediaData) detached(clips []Clip) *MediaData {
	return &MediaData{
		id:        media.NewID(),
		format:    m.format.Copy(),
		clips:     clips,
		registry:  m.registry,
		providers: m.providers,
		inMemory:  m.inMemory,
		log:       m.log,
	}
}

func (m *MediaData) validateClip(c Clip) error {
	if c.Provider == nil {
		return errors.ArgumentDomain(component, "clip provider must not be nil")
	}
	if c.Begin < 0 || c.End < c.Begin {
		return errors.ArgumentDomain(component, "invalid clip range [%d, %d)", c.Begin, c.End)
	}
	if size := c.Provider.Size(); c.End > size {
		return errors.ArgumentDomain(component, "clip range [%d, %d) exceeds provider %s size %d", c.Begin, c.End, c.Provider.ID(), size)
	}
	if !m.format.IsAligned(c.Len()) {
		return errors.ArgumentDomain(component, "clip length %d is not a multiple of block size %d", c.Len(), m.format.BlockAlign())
	}
	return nil
}

// ID returns the stable identity.
func (m *MediaData) ID() string { return m.id }

// Format returns a copy of the PCM format.
func (m *MediaData) Format() *pcm.FormatInfo { return m.format.Copy() }

// SetFormat changes the PCM format. Only an empty payload may change format.
func (m *MediaData) SetFormat(f *pcm.FormatInfo) error {
	if f == nil {
		return errors.ArgumentDomain(component, "format must not be nil")
	}
	if m.PCMLength() > 0 {
		return errors.State(component, fmt.Errorf("cannot change format of non-empty audio %s", m.id))
	}
	m.format = f.Copy()
	return nil
}

// Clips returns the clip list in playback order.
func (m *MediaData) Clips() []Clip { return slices.Clone(m.clips) }

// NeedsDefragment reports whether the audio spans more than one clip.
func (m *MediaData) NeedsDefragment() bool { return len(m.clips) > 1 }

// PCMLength returns the total number of PCM bytes.
func (m *MediaData) PCMLength() int64 {
	var n int64
	for _, c := range m.clips {
		n += c.Len()
	}
	return n
}

// Duration returns the playback time of the audio.
func (m *MediaData) Duration() time.Duration {
	return m.format.DurationForBytes(m.PCMLength())
}

// UsedDataProviders returns the distinct providers referenced by the clips.
func (m *MediaData) UsedDataProviders() []media.DataProvider {
	out := make([]media.DataProvider, 0, len(m.clips))
	for _, c := range m.clips {
		if !slices.Contains(out, c.Provider) {
			out = append(out, c.Provider)
		}
	}
	return out
}

// ReadAudio returns a stream over all audio.
func (m *MediaData) ReadAudio() (*stream.SequenceStream, error) {
	return m.readBytes(0, m.PCMLength())
}

// ReadAudioFrom returns a stream over the audio from begin to the end.
func (m *MediaData) ReadAudioFrom(begin time.Duration) (*stream.SequenceStream, error) {
	return m.ReadAudioRange(begin, m.Duration())
}

// ReadAudioRange returns a stream over [begin, end). The caller must close
// the stream.
func (m *MediaData) ReadAudioRange(begin, end time.Duration) (*stream.SequenceStream, error) {
	b, e, err := m.byteRange(begin, end)
	if err != nil {
		return nil, err
	}
	return m.readBytes(b, e)
}

// byteOffset converts a time position into a block-aligned byte offset
// within the audio.
func (m *MediaData) byteOffset(t time.Duration) (int64, error) {
	if t < 0 {
		return 0, errors.ArgumentDomain(component, "time %s must not be negative", t)
	}
	dur := m.Duration()
	if t > dur {
		return 0, errors.ArgumentDomain(component, "time %s is beyond audio duration %s", t, dur)
	}
	if t == dur {
		return m.PCMLength(), nil
	}
	return m.format.BytesForDuration(t), nil
}

func (m *MediaData) byteRange(begin, end time.Duration) (b, e int64, err error) {
	if end < begin {
		return 0, 0, errors.ArgumentDomain(component, "end %s is before begin %s", end, begin)
	}
	if b, err = m.byteOffset(begin); err != nil {
		return 0, 0, err
	}
	if e, err = m.byteOffset(end); err != nil {
		return 0, 0, err
	}
	return b, e, nil
}

// readBytes opens one section per clip overlapping [b, e).
func (m *MediaData) readBytes(b, e int64) (*stream.SequenceStream, error) {
	var (
		sources []stream.Source
		off     int64
	)
	closeAll := func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}

	for _, c := range m.clips {
		lo, hi := max(b, off), min(e, off+c.Len())
		off += c.Len()
		if lo >= hi {
			continue
		}

		src, err := c.Provider.OpenInputStream()
		if err != nil {
			closeAll()
			return nil, err
		}
		sec, err := stream.NewSection(src, c.Begin+(lo-(off-c.Len())), hi-lo)
		if err != nil {
			_ = src.Close()
			closeAll()
			return nil, err
		}
		sources = append(sources, sec)
	}

	if len(sources) == 0 {
		sources = append(sources, stream.FromBytes(nil))
	}
	return stream.NewSequenceStream(sources...)
}
