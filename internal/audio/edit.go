package audio

import (
	"io"
	"slices"
	"time"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/media"
)

// AppendAudioData appends dur of raw PCM read from r.
func (m *MediaData) AppendAudioData(r io.Reader, dur time.Duration) error {
	return m.InsertAudioData(r, m.Duration(), dur)
}

// InsertAudioData inserts dur of raw PCM read from r at time at. The PCM
// must already be in this payload's format. If r ends before dur is
// read, nothing changes and an incompatibility error is returned.
func (m *MediaData) InsertAudioData(r io.Reader, at, dur time.Duration) error {
	clips, pos, err := m.prepareInsert(r, at, dur)
	if err != nil {
		return err
	}
	return m.insertClips(pos, clips)
}

func (m *MediaData) prepareInsert(r io.Reader, at, dur time.Duration) ([]Clip, int64, error) {
	if r == nil {
		return nil, 0, errors.ArgumentDomain(component, "audio source must not be nil")
	}
	if dur < 0 {
		return nil, 0, errors.ArgumentDomain(component, "duration %s must not be negative", dur)
	}
	pos, err := m.byteOffset(at)
	if err != nil {
		return nil, 0, err
	}
	clips, err := m.stage(r, m.format.BytesForDuration(dur))
	if err != nil {
		return nil, 0, err
	}
	return clips, pos, nil
}

// ReplaceAudioData replaces [at, at+dur) with raw PCM read from r. The
// replacement is exactly as many bytes as the range removed, so the
// payload length never changes.
func (m *MediaData) ReplaceAudioData(r io.Reader, at, dur time.Duration) error {
	if r == nil {
		return errors.ArgumentDomain(component, "audio source must not be nil")
	}
	if dur < 0 {
		return errors.ArgumentDomain(component, "duration %s must not be negative", dur)
	}
	if at >= 0 && at+dur > m.Duration() {
		return errors.ArgumentDomain(component, "replace range %s+%s exceeds audio duration %s", at, dur, m.Duration())
	}
	begin, end, err := m.byteRange(at, at+dur)
	if err != nil {
		return err
	}
	clips, err := m.stage(r, end-begin)
	if err != nil {
		return err
	}
	if _, err := m.removeBytes(begin, end); err != nil {
		return err
	}
	return m.insertClips(begin, clips)
}

// RemoveAudio removes [begin, end).
func (m *MediaData) RemoveAudio(begin, end time.Duration) error {
	b, e, err := m.byteRange(begin, end)
	if err != nil {
		return err
	}
	_, err = m.removeBytes(b, e)
	return err
}

// RemoveAudioFrom removes everything from begin to the end.
func (m *MediaData) RemoveAudioFrom(begin time.Duration) error {
	return m.RemoveAudio(begin, m.Duration())
}

// Split keeps [0, at) and moves [at, end) into a new registered payload
// with the same format, which it returns. Splitting at zero or at the full
// duration leaves one side empty.
func (m *MediaData) Split(at time.Duration) (*MediaData, error) {
	pos, err := m.byteOffset(at)
	if err != nil {
		return nil, err
	}

	sibling := m.detached(nil)
	if err := m.registry.Add(sibling); err != nil {
		return nil, err
	}
	tail, err := m.removeBytes(pos, m.PCMLength())
	if err != nil {
		_ = m.registry.Delete(sibling.id)
		return nil, err
	}
	sibling.clips = tail

	m.log.Debug("audio split",
		logger.String("media_id", m.id),
		logger.String("sibling_id", sibling.id),
		logger.Duration("at", at))
	return sibling, nil
}

// Merge appends other's audio and leaves other empty. Both payloads must
// have compatible formats.
func (m *MediaData) Merge(other *MediaData) error {
	if other == nil {
		return errors.ArgumentDomain(component, "merge source must not be nil")
	}
	if other == m {
		return errors.ArgumentDomain(component, "cannot merge audio %s into itself", m.id)
	}
	if !m.format.IsCompatibleWith(other.format) {
		return errors.Incompatible(component, "cannot merge %s audio into %s audio", other.format, m.format)
	}

	m.clips = append(m.clips, other.clips...)
	other.clips = nil
	m.compact()

	m.log.Debug("audio merged",
		logger.String("media_id", m.id),
		logger.String("source_id", other.id),
		logger.Int64("pcm_bytes", m.PCMLength()))
	return nil
}

// stage copies exactly n bytes from r into a new provider. A zero-length
// stage yields no clips and no provider.
func (m *MediaData) stage(r io.Reader, n int64) ([]Clip, error) {
	if n == 0 {
		return nil, nil
	}
	p, err := m.newProvider()
	if err != nil {
		return nil, err
	}

	copied, err := writeProvider(p, func(w io.Writer) (int64, error) {
		return io.CopyN(w, r, n)
	})
	if err != nil {
		m.discard(p)
		if err == io.EOF || copied < n {
			return nil, errors.Incompatible(component, "audio source ended after %d of %d declared bytes", copied, n)
		}
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("provider_id", p.ID()).
			Build()
	}
	return []Clip{{Provider: p, Begin: 0, End: n}}, nil
}

// stageAll copies r to EOF into a new provider. The byte count must be a
// whole number of blocks.
func (m *MediaData) stageAll(r io.Reader) ([]Clip, error) {
	p, err := m.newProvider()
	if err != nil {
		return nil, err
	}
	n, err := writeProvider(p, func(w io.Writer) (int64, error) {
		return io.Copy(w, r)
	})
	if err != nil {
		m.discard(p)
		return nil, err
	}
	if !m.format.IsAligned(n) {
		m.discard(p)
		return nil, errors.Incompatible(component, "audio source length %d is not a multiple of block size %d", n, m.format.BlockAlign())
	}
	if n == 0 {
		m.discard(p)
		return nil, nil
	}
	return []Clip{{Provider: p, Begin: 0, End: n}}, nil
}

func writeProvider(p media.DataProvider, copyFn func(io.Writer) (int64, error)) (int64, error) {
	w, err := p.OpenOutputStream()
	if err != nil {
		return 0, err
	}
	n, err := copyFn(w)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func (m *MediaData) newProvider() (media.DataProvider, error) {
	if m.inMemory {
		return m.providers.CreateMemoryProvider(media.MimeTypePCM), nil
	}
	return m.providers.CreateFileProvider(media.MimeTypePCM)
}

// discard drops a staged provider that never made it into the clip list.
func (m *MediaData) discard(p media.DataProvider) {
	if err := m.providers.Delete(p.ID()); err != nil {
		m.log.Warn("failed to discard staged provider",
			logger.String("provider_id", p.ID()),
			logger.Error(err))
	}
}

// splitAt makes sure a clip boundary exists at byte pos and returns the
// index of the first clip starting at or after pos.
func (m *MediaData) splitAt(pos int64) int {
	var off int64
	for i, c := range m.clips {
		if pos == off {
			return i
		}
		if pos < off+c.Len() {
			cut := c.Begin + (pos - off)
			m.clips = slices.Insert(m.clips, i+1, Clip{Provider: c.Provider, Begin: cut, End: c.End})
			m.clips[i].End = cut
			return i + 1
		}
		off += c.Len()
	}
	return len(m.clips)
}

// removeBytes cuts [b, e) out of the clip list and returns the removed clips.
func (m *MediaData) removeBytes(b, e int64) ([]Clip, error) {
	if b < 0 || e < b || e > m.PCMLength() {
		return nil, errors.ArgumentDomain(component, "byte range [%d, %d) is outside audio of %d bytes", b, e, m.PCMLength())
	}
	if b == e {
		return nil, nil
	}
	i := m.splitAt(b)
	j := m.splitAt(e)
	removed := slices.Clone(m.clips[i:j])
	m.clips = slices.Delete(m.clips, i, j)
	m.compact()
	return removed, nil
}

// insertClips inserts clips at byte pos.
func (m *MediaData) insertClips(pos int64, clips []Clip) error {
	if pos < 0 || pos > m.PCMLength() {
		return errors.ArgumentDomain(component, "insert position %d is outside audio of %d bytes", pos, m.PCMLength())
	}
	if len(clips) == 0 {
		return nil
	}
	i := m.splitAt(pos)
	m.clips = slices.Insert(m.clips, i, clips...)
	m.compact()
	return nil
}

// compact joins adjacent clips that are contiguous in the same provider and
// drops empty ones.
func (m *MediaData) compact() {
	out := m.clips[:0]
	for _, c := range m.clips {
		if c.Len() == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Provider == c.Provider && out[n-1].End == c.Begin {
			out[n-1].End = c.End
			continue
		}
		out = append(out, c)
	}
	clear(m.clips[len(out):])
	m.clips = out
}
