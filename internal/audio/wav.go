package audio

import (
	"io"
	"time"

	"github.com/go-audio/wav"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/pcm"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVInfo describes a RIFF/WAV stream.
type WAVInfo struct {
	Format *pcm.FormatInfo
	// DataBytes is the PCM length declared by the data chunk header.
	DataBytes int64
}

// Duration returns the playback time declared by the header.
func (i *WAVInfo) Duration() time.Duration {
	return i.Format.DurationForBytes(i.DataBytes)
}

// ReadWAVInfo parses the RIFF/WAV headers of r.
func ReadWAVInfo(r io.ReadSeeker) (*WAVInfo, error) {
	info, _, err := decodeWAV(r)
	return info, err
}

// decodeWAV validates the headers and positions a reader at the start of
// the PCM data chunk.
func decodeWAV(r io.ReadSeeker) (*WAVInfo, io.Reader, error) {
	if r == nil {
		return nil, nil, errors.ArgumentDomain(component, "WAV source must not be nil")
	}

	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, nil, errors.Newf("invalid WAV file format").
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}
	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, nil, errors.Incompatible(component, "unsupported WAV audio format %d, only PCM is accepted", decoder.WavAudioFormat)
	}

	format, err := pcm.NewFormatInfo(int(decoder.NumChans), int(decoder.SampleRate), int(decoder.BitDepth))
	if err != nil {
		return nil, nil, errors.Incompatible(component, "unsupported WAV format: %v", err)
	}

	if err := decoder.FwdToPCM(); err != nil {
		return nil, nil, errors.New(err).
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}
	if decoder.PCMChunk == nil {
		return nil, nil, errors.Newf("WAV file has no data chunk").
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}

	return &WAVInfo{Format: format, DataBytes: int64(decoder.PCMSize)}, decoder.PCMChunk.R, nil
}

// InsertWAV inserts dur of audio from the RIFF/WAV stream r at time at.
// The stream's format must be compatible, and dur must not exceed the
// audio the stream declares and actually contains.
func (m *MediaData) InsertWAV(r io.ReadSeeker, at, dur time.Duration) error {
	info, pcmData, err := m.openCompatibleWAV(r)
	if err != nil {
		return err
	}
	if dur > info.Duration() {
		return errors.Incompatible(component, "requested duration %s exceeds WAV duration %s", dur, info.Duration())
	}
	return m.InsertAudioData(pcmData, at, dur)
}

// AppendWAV appends all audio of the RIFF/WAV stream r.
func (m *MediaData) AppendWAV(r io.ReadSeeker) error {
	info, pcmData, err := m.openCompatibleWAV(r)
	if err != nil {
		return err
	}

	n := m.format.AlignBytes(info.DataBytes)
	clips, err := m.stage(pcmData, n)
	if err != nil {
		return err
	}
	if err := m.insertClips(m.PCMLength(), clips); err != nil {
		return err
	}

	m.log.Debug("WAV appended",
		logger.String("media_id", m.id),
		logger.String("format", info.Format.String()),
		logger.Int64("pcm_bytes", n))
	return nil
}

func (m *MediaData) openCompatibleWAV(r io.ReadSeeker) (*WAVInfo, io.Reader, error) {
	info, pcmData, err := decodeWAV(r)
	if err != nil {
		return nil, nil, err
	}
	if !info.Format.IsCompatibleWith(m.format) {
		return nil, nil, errors.Incompatible(component, "WAV format %s is incompatible with %s", info.Format, m.format)
	}
	return info, pcmData, nil
}
