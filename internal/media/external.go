package media

import (
	"slices"
	"sync"

	"github.com/tphakala/mediaedit/internal/errors"
)

// ExternalFile describes a file that belongs to a presentation outside the
// document tree, such as a stylesheet or a referenced image.
type ExternalFile interface {
	UsedMediaData() []MediaData
	UsedDataProviders() []DataProvider
}

// ExternalFileData is a named ExternalFile backed by explicit providers and
// optionally by media.
type ExternalFileData struct {
	Name      string
	Media     []MediaData
	Providers []DataProvider
}

// UsedMediaData returns the referenced media.
func (e *ExternalFileData) UsedMediaData() []MediaData { return e.Media }

// UsedDataProviders returns the referenced providers.
func (e *ExternalFileData) UsedDataProviders() []DataProvider { return e.Providers }

// ExternalFileRegistry enumerates the external-file descriptors of a presentation.
type ExternalFileRegistry struct {
	mu    sync.RWMutex
	files []ExternalFile
}

// NewExternalFileRegistry creates an empty registry.
func NewExternalFileRegistry() *ExternalFileRegistry {
	return &ExternalFileRegistry{}
}

// Add registers a descriptor.
func (r *ExternalFileRegistry) Add(f ExternalFile) error {
	if f == nil {
		return errors.ArgumentDomain(component, "external file must not be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, f)
	return nil
}

// Remove unregisters a descriptor; it reports whether it was present.
func (r *ExternalFileRegistry) Remove(f ExternalFile) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.files, f)
	if i < 0 {
		return false
	}
	r.files = slices.Delete(r.files, i, i+1)
	return true
}

// Files returns the registered descriptors in registration order.
func (r *ExternalFileRegistry) Files() []ExternalFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.files)
}
