package audio

import (
	"io"
	"path/filepath"
	"strings"
)

// IsFLAC reports whether name has a .flac extension.
func IsFLAC(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".flac")
}

// AppendEncoded decodes r as FLAC or WAV, chosen by the extension of name,
// and appends its audio.
func (m *MediaData) AppendEncoded(r io.ReadSeeker, name string) error {
	if IsFLAC(name) {
		return m.AppendFLAC(r)
	}
	return m.AppendWAV(r)
}
