package audio

import (
	"context"
	"io"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
)

// defragChunk is the copy granularity between cancellation checks.
const defragChunk = 256 * 1024

// Defragment copies all clips into one new provider so the audio is backed
// by a single contiguous range. It returns the number of bytes copied. The
// clip list only changes once the copy completes; a cancelled or failed
// copy discards the partial provider.
func (m *MediaData) Defragment(ctx context.Context) (int64, error) {
	if !m.NeedsDefragment() {
		return 0, nil
	}
	total := m.PCMLength()

	src, err := m.ReadAudio()
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	p, err := m.newProvider()
	if err != nil {
		return 0, err
	}

	copied, err := writeProvider(p, func(w io.Writer) (int64, error) {
		var n int64
		for n < total {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			c, err := io.CopyN(w, src, min(defragChunk, total-n))
			n += c
			if err != nil {
				return n, err
			}
		}
		return n, nil
	})
	if err != nil {
		m.discard(p)
		category := errors.CategoryFileIO
		if ctx.Err() != nil {
			category = errors.CategoryCancellation
		}
		return 0, errors.New(err).
			Component(component).
			Category(category).
			Context("media_id", m.id).
			Build()
	}

	segments := len(m.clips)
	m.clips = []Clip{{Provider: p, Begin: 0, End: copied}}

	m.log.Debug("audio defragmented",
		logger.String("media_id", m.id),
		logger.Int("segments", segments),
		logger.Int64("bytes", copied))
	return copied, nil
}
