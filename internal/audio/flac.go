package audio

import (
	"io"

	"github.com/tphakala/flac"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/pcm"
)

// AppendFLAC decodes the FLAC stream r and appends its audio. The stream's
// format must be compatible.
func (m *MediaData) AppendFLAC(r io.Reader) error {
	if r == nil {
		return errors.ArgumentDomain(component, "FLAC source must not be nil")
	}

	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}
	if decoder.BitsPerSample%8 != 0 {
		return errors.Incompatible(component, "unsupported FLAC bit depth %d", decoder.BitsPerSample)
	}

	format, err := pcm.NewFormatInfo(decoder.NChannels, decoder.SampleRate, decoder.BitsPerSample)
	if err != nil {
		return errors.Incompatible(component, "unsupported FLAC format: %v", err)
	}
	if !format.IsCompatibleWith(m.format) {
		return errors.Incompatible(component, "FLAC format %s is incompatible with %s", format, m.format)
	}

	src := &flacReader{decoder: decoder, unsigned8: decoder.BitsPerSample == 8}
	var clips []Clip
	if decoder.TotalSamples > 0 {
		clips, err = m.stage(src, int64(decoder.TotalSamples)*int64(format.BlockAlign()))
	} else {
		clips, err = m.stageAll(src)
	}
	if err != nil {
		return err
	}
	if err := m.insertClips(m.PCMLength(), clips); err != nil {
		return err
	}

	m.log.Debug("FLAC appended",
		logger.String("media_id", m.id),
		logger.String("format", format.String()),
		logger.Int64("total_samples", int64(decoder.TotalSamples)))
	return nil
}

// flacReader exposes decoded FLAC frames as a byte stream of interleaved
// little-endian PCM.
type flacReader struct {
	decoder   *flac.Decoder
	pending   []byte
	unsigned8 bool
}

func (f *flacReader) Read(p []byte) (int, error) {
	for len(f.pending) == 0 {
		frame, err := f.decoder.Next()
		if err != nil {
			return 0, err
		}
		if f.unsigned8 {
			// WAV stores 8-bit PCM unsigned
			for i := range frame {
				frame[i] += 0x80
			}
		}
		f.pending = frame
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}
