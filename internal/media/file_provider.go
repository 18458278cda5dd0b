package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/stream"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// FileDataProvider stores its bytes in one file below the data directory.
// The file name is stable for the provider's lifetime. Delete moves the file
// into the quarantine directory instead of unlinking it.
type FileDataProvider struct {
	id            string
	mime          string
	fs            afero.Fs
	dataDir       string
	quarantineDir string
	relPath       string
	guard         streamGuard

	mu      sync.Mutex
	deleted bool
}

var _ DataProvider = (*FileDataProvider)(nil)

// NewFileDataProvider creates an unregistered provider for relPath inside
// dataDir. An empty relPath gets a generated name.
func NewFileDataProvider(fs afero.Fs, dataDir, quarantineDir, id, mimeType, relPath string) (*FileDataProvider, error) {
	if fs == nil {
		return nil, errors.ArgumentDomain(component, "file data provider requires a filesystem")
	}
	if id == "" {
		id = NewID()
	}
	if relPath == "" {
		relPath = id + extensionFor(mimeType)
	}
	relPath = filepath.Clean(relPath)
	if filepath.IsAbs(relPath) || relPath == "." || relPath == ".." || filepath.Dir(relPath) != "." {
		return nil, errors.ArgumentDomain(component, "data provider path must be a plain file name, got %q", relPath)
	}
	return &FileDataProvider{
		id:            id,
		mime:          mimeType,
		fs:            fs,
		dataDir:       dataDir,
		quarantineDir: quarantineDir,
		relPath:       relPath,
	}, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case MimeTypePCM:
		return ".pcm"
	case MimeTypeWAV:
		return ".wav"
	default:
		return ".bin"
	}
}

func (p *FileDataProvider) ID() string       { return p.id }
func (p *FileDataProvider) MimeType() string { return p.mime }

// RelativePath returns the file name relative to the data directory.
func (p *FileDataProvider) RelativePath() string { return p.relPath }

// Path returns the file location inside the data directory.
func (p *FileDataProvider) Path() string {
	return filepath.Join(p.dataDir, p.relPath)
}

// QuarantinePath returns where Delete moves the file when no earlier
// quarantined file holds that name.
func (p *FileDataProvider) QuarantinePath() string {
	return filepath.Join(p.dataDir, p.quarantineDir, p.relPath)
}

// freeQuarantinePath returns QuarantinePath, or the first name-N variant of
// it that does not exist yet.
func (p *FileDataProvider) freeQuarantinePath() (string, error) {
	target := p.QuarantinePath()
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for n := 1; ; n++ {
		taken, err := afero.Exists(p.fs, target)
		if err != nil {
			return "", err
		}
		if !taken {
			return target, nil
		}
		target = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
}

// Size returns the current file size, or 0 when nothing was written yet.
func (p *FileDataProvider) Size() int64 {
	info, err := p.fs.Stat(p.Path())
	if err != nil {
		return 0
	}
	return info.Size()
}

// OpenInputStream opens the file for reading. A provider that was never
// written reads as empty.
func (p *FileDataProvider) OpenInputStream() (stream.Source, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	if err := p.guard.acquireRead(p.id); err != nil {
		return nil, err
	}

	f, err := p.fs.Open(p.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &guardedSource{Source: stream.FromBytes(nil), release: p.guard.releaseRead}, nil
		}
		p.guard.releaseRead()
		return nil, errors.FileError(fmt.Errorf("open data provider %s: %w", p.id, err), p.Path(), 0)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		p.guard.releaseRead()
		return nil, errors.FileError(fmt.Errorf("stat data provider %s: %w", p.id, err), p.Path(), 0)
	}

	return &guardedSource{Source: &fileSource{File: f, size: info.Size()}, release: p.guard.releaseRead}, nil
}

// OpenOutputStream truncates the file and returns a writer.
func (p *FileDataProvider) OpenOutputStream() (io.WriteCloser, error) {
	if err := p.checkLive(); err != nil {
		return nil, err
	}
	if err := p.guard.acquireWrite(p.id); err != nil {
		return nil, err
	}

	if err := p.fs.MkdirAll(p.dataDir, dirPermissions); err != nil {
		p.guard.releaseWrite()
		return nil, errors.FileError(fmt.Errorf("create data directory: %w", err), p.dataDir, 0)
	}

	f, err := p.fs.OpenFile(p.Path(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		p.guard.releaseWrite()
		return nil, errors.FileError(fmt.Errorf("open data provider %s for writing: %w", p.id, err), p.Path(), 0)
	}

	return &guardedWriter{
		Writer: f,
		commit: func() error {
			defer p.guard.releaseWrite()
			if err := f.Close(); err != nil {
				return errors.FileError(fmt.Errorf("close data provider %s: %w", p.id, err), p.Path(), 0)
			}
			return nil
		},
	}, nil
}

// Delete moves the file into the quarantine directory. It fails with a
// resource-busy error while any stream is open.
func (p *FileDataProvider) Delete() error {
	if err := p.guard.checkIdle(p.id); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return nil
	}

	exists, err := afero.Exists(p.fs, p.Path())
	if err != nil {
		return errors.FileError(fmt.Errorf("check data provider %s: %w", p.id, err), p.Path(), 0)
	}

	if exists {
		target, err := p.freeQuarantinePath()
		if err != nil {
			return errors.FileError(fmt.Errorf("check quarantine for %s: %w", p.id, err), p.QuarantinePath(), 0)
		}
		if err := p.fs.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
			return errors.New(fmt.Errorf("create quarantine directory: %w", err)).
				Component(component).
				Category(errors.CategoryDiskCleanup).
				Context("operation", "quarantine_provider").
				FileContext(target, 0).
				Build()
		}
		if err := p.fs.Rename(p.Path(), target); err != nil {
			return errors.New(fmt.Errorf("move data provider %s to quarantine: %w", p.id, err)).
				Component(component).
				Category(errors.CategoryDiskCleanup).
				Context("operation", "quarantine_provider").
				Context("provider_id", p.id).
				FileContext(p.Path(), 0).
				Build()
		}
		// quarantine retention counts from the move
		now := time.Now()
		if err := p.fs.Chtimes(target, now, now); err != nil {
			log().Warn("cannot stamp quarantined file", logger.String("path", target), logger.Error(err))
		}
		log().Debug("data provider moved to quarantine",
			logger.String("provider_id", p.id),
			logger.String("path", target))
	}

	p.deleted = true
	return nil
}

func (p *FileDataProvider) checkLive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return errors.State(component, fmt.Errorf("data provider %s has been deleted", p.id))
	}
	return nil
}

// fileSource adapts an open afero.File to stream.Source.
type fileSource struct {
	afero.File
	size int64
}

func (s *fileSource) Size() int64 { return s.size }
