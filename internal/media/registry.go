package media

import (
	"slices"
	"sync"

	"github.com/spf13/afero"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
)

// Manager is the registry of MediaData owned by a presentation.
type Manager struct {
	mu    sync.RWMutex
	items map[string]MediaData
	order []string
}

// NewManager creates an empty MediaData registry.
func NewManager() *Manager {
	return &Manager{items: make(map[string]MediaData)}
}

// Add registers md. Registering the same identity twice is an error.
func (m *Manager) Add(md MediaData) error {
	if md == nil {
		return errors.ArgumentDomain(component, "media data must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := md.ID()
	if existing, ok := m.items[id]; ok {
		if existing == md {
			return nil
		}
		return errors.Newf("media data %s is already registered", id).
			Component(component).
			Category(errors.CategoryConflict).
			Context("media_id", id).
			Build()
	}
	m.items[id] = md
	m.order = append(m.order, id)
	return nil
}

// Get returns the registered MediaData with the given identity.
func (m *Manager) Get(id string) (MediaData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.items[id]
	if !ok {
		return nil, errors.NotFound(component, "media data", id)
	}
	return md, nil
}

// Contains reports whether id is registered.
func (m *Manager) Contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[id]
	return ok
}

// Delete releases the registry entry. Backing providers are untouched.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errors.NotFound(component, "media data", id)
	}
	delete(m.items, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return nil
}

// All returns the registered MediaData in registration order.
func (m *Manager) All() []MediaData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MediaData, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out
}

// Len returns the number of registered MediaData.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// ProviderManager is the registry of DataProviders owned by a presentation.
// It also creates file-backed providers on its filesystem.
type ProviderManager struct {
	fs            afero.Fs
	dataDir       string
	quarantineDir string

	mu        sync.RWMutex
	providers map[string]DataProvider
	order     []string
}

// NewProviderManager creates a registry whose file providers live in
// dataDir on fs and are quarantined into dataDir/quarantineDir.
func NewProviderManager(fs afero.Fs, dataDir, quarantineDir string) *ProviderManager {
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	return &ProviderManager{
		fs:            fs,
		dataDir:       dataDir,
		quarantineDir: quarantineDir,
		providers:     make(map[string]DataProvider),
	}
}

// Fs returns the filesystem file providers are created on.
func (pm *ProviderManager) Fs() afero.Fs { return pm.fs }

// DataDir returns the directory holding provider files.
func (pm *ProviderManager) DataDir() string { return pm.dataDir }

// QuarantineDir returns the quarantine directory relative to DataDir.
func (pm *ProviderManager) QuarantineDir() string { return pm.quarantineDir }

// CreateFileProvider creates and registers a new file-backed provider.
func (pm *ProviderManager) CreateFileProvider(mimeType string) (*FileDataProvider, error) {
	p, err := NewFileDataProvider(pm.fs, pm.dataDir, pm.quarantineDir, "", mimeType, "")
	if err != nil {
		return nil, err
	}
	if err := pm.Add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RestoreFileProvider registers a provider for an existing file, keeping
// its identity and file name.
func (pm *ProviderManager) RestoreFileProvider(id, mimeType, relPath string) (*FileDataProvider, error) {
	p, err := NewFileDataProvider(pm.fs, pm.dataDir, pm.quarantineDir, id, mimeType, relPath)
	if err != nil {
		return nil, err
	}
	if err := pm.Add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateMemoryProvider creates and registers a new in-memory provider.
func (pm *ProviderManager) CreateMemoryProvider(mimeType string) *MemoryDataProvider {
	p := NewMemoryDataProvider("", mimeType)
	// a fresh uuid cannot collide
	_ = pm.Add(p)
	return p
}

// Add registers p.
func (pm *ProviderManager) Add(p DataProvider) error {
	if p == nil {
		return errors.ArgumentDomain(component, "data provider must not be nil")
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()

	id := p.ID()
	if existing, ok := pm.providers[id]; ok {
		if existing == p {
			return nil
		}
		return errors.Newf("data provider %s is already registered", id).
			Component(component).
			Category(errors.CategoryConflict).
			Context("provider_id", id).
			Build()
	}
	pm.providers[id] = p
	pm.order = append(pm.order, id)
	return nil
}

// Get returns the registered provider with the given identity.
func (pm *ProviderManager) Get(id string) (DataProvider, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.providers[id]
	if !ok {
		return nil, errors.NotFound(component, "data provider", id)
	}
	return p, nil
}

// Contains reports whether id is registered.
func (pm *ProviderManager) Contains(id string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, ok := pm.providers[id]
	return ok
}

// Delete deletes the provider's storage and then its registry entry. If the
// provider refuses, for example because a stream is open, the registry is
// left unchanged.
func (pm *ProviderManager) Delete(id string) error {
	p, err := pm.Get(id)
	if err != nil {
		return err
	}

	if err := p.Delete(); err != nil {
		return err
	}

	pm.mu.Lock()
	delete(pm.providers, id)
	pm.order = slices.DeleteFunc(pm.order, func(s string) bool { return s == id })
	pm.mu.Unlock()

	log().Debug("data provider deleted",
		logger.String("provider_id", id),
		logger.String("mime_type", p.MimeType()))
	return nil
}

// All returns the registered providers in registration order.
func (pm *ProviderManager) All() []DataProvider {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]DataProvider, 0, len(pm.order))
	for _, id := range pm.order {
		out = append(out, pm.providers[id])
	}
	return out
}

// Len returns the number of registered providers.
func (pm *ProviderManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.providers)
}
