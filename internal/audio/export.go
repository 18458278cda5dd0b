package audio

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/mediaedit/internal/errors"
)

// exportBlocks is the number of sample frames converted per encoder write.
const exportBlocks = 4096

// ExportWAV writes the audio to w as a RIFF/WAV file. The encoder seeks
// back to patch the header sizes, so w must be seekable. w is not closed.
func (m *MediaData) ExportWAV(ctx context.Context, w io.WriteSeeker) error {
	bitDepth := m.format.BitDepth()
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return errors.Incompatible(component, "WAV export does not support %d-bit audio", bitDepth)
	}

	src, err := m.ReadAudio()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	enc := wav.NewEncoder(w, m.format.SampleRate(), bitDepth, m.format.Channels(), wavFormatPCM)
	format := &audio.Format{NumChannels: m.format.Channels(), SampleRate: m.format.SampleRate()}
	raw := make([]byte, exportBlocks*m.format.BlockAlign())
	samples := make([]int, 0, len(raw)/(bitDepth/8))

	wrote := false
	for {
		if err := ctx.Err(); err != nil {
			return errors.New(err).
				Component(component).
				Category(errors.CategoryCancellation).
				Build()
		}

		n, readErr := io.ReadFull(src, raw)
		if n > 0 || !wrote {
			samples = decodeSamples(samples[:0], raw[:n], bitDepth)
			buf := &audio.IntBuffer{Format: format, Data: samples, SourceBitDepth: bitDepth}
			if err := enc.Write(buf); err != nil {
				return errors.New(err).
					Component(component).
					Category(errors.CategoryFileIO).
					Build()
			}
			wrote = true
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if err := enc.Close(); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

// decodeSamples converts little-endian PCM bytes into the integer sample
// values the encoder expects. 8-bit samples stay unsigned.
func decodeSamples(dst []int, raw []byte, bitDepth int) []int {
	switch bitDepth {
	case 8:
		for _, b := range raw {
			dst = append(dst, int(b))
		}
	case 16:
		for i := 0; i+1 < len(raw); i += 2 {
			dst = append(dst, int(int16(binary.LittleEndian.Uint16(raw[i:]))))
		}
	case 24:
		for i := 0; i+2 < len(raw); i += 3 {
			v := int32(raw[i]) | int32(raw[i+1])<<8 | int32(raw[i+2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			dst = append(dst, int(v))
		}
	case 32:
		for i := 0; i+3 < len(raw); i += 4 {
			dst = append(dst, int(int32(binary.LittleEndian.Uint32(raw[i:]))))
		}
	}
	return dst
}
