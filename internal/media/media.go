// Package media holds logical payloads (MediaData), the physical resources
// backing them (DataProvider), and the registries that own both.
//
// Registries are explicit objects owned by a presentation; there is no
// process-wide state. Callers serialize access; the registry mutexes only
// keep accidental concurrent use from corrupting the maps.
package media

import (
	"io"

	"github.com/google/uuid"

	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/stream"
)

const component = "media"

// MediaData is a logical payload with a stable identity.
type MediaData interface {
	ID() string
	// UsedDataProviders returns the providers holding this payload's bytes.
	UsedDataProviders() []DataProvider
}

// DataProvider is a physical resource backing one or more MediaData.
//
// Providers enforce single-writer / multiple-reader access: an output stream
// cannot be opened while any stream is open, an input stream cannot be
// opened while an output stream is open, and Delete fails while any stream
// is open. Conflicts return a resource-busy error.
type DataProvider interface {
	ID() string
	MimeType() string
	OpenInputStream() (stream.Source, error)
	// OpenOutputStream truncates the provider and returns a writer. Whether
	// bytes are stored as they are written or when the writer is closed
	// depends on the provider; the content is complete once Close returns.
	OpenOutputStream() (io.WriteCloser, error)
	// Size returns the number of stored bytes.
	Size() int64
	Delete() error
}

// MIME types used for provider payloads.
const (
	MimeTypePCM    = "audio/x-pcm"
	MimeTypeWAV    = "audio/wav"
	MimeTypeBinary = "application/octet-stream"
)

// NewID returns a fresh identifier for media and providers.
func NewID() string {
	return uuid.NewString()
}

// log returns the package logger
func log() logger.Logger {
	return logger.Global().Module(component)
}
