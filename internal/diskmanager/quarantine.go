// Package diskmanager applies retention policies to the quarantine
// directory, where the cleaner moves data files nothing references.
package diskmanager

import (
	"context"
	"io/fs"
	"slices"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
)

const component = "diskmanager"

// DefaultMaxDeletions bounds the number of files removed in one run.
const DefaultMaxDeletions = 1000

// FileInfo holds information about a quarantined file.
type FileInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// PurgeResult summarizes a retention run.
type PurgeResult struct {
	Deleted      []string
	BytesFreed   int64
	Failed       int
	LimitReached bool
}

// AgePolicy deletes quarantined files older than MaxAge. A zero MaxAge
// keeps everything.
type AgePolicy struct {
	MaxAge       time.Duration
	MaxDeletions int
	// Now is the reference time, time.Now when nil.
	Now func() time.Time
}

// GetQuarantinedFiles lists regular files below dir, oldest first. A
// missing directory yields no files.
func GetQuarantinedFiles(fsys afero.Fs, dir string) ([]FileInfo, error) {
	exists, err := afero.DirExists(fsys, dir)
	if err != nil || !exists {
		return nil, err
	}

	var files []FileInfo
	err = afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, FileInfo{Path: path, Timestamp: info.ModTime(), Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryDiskCleanup).
			Context("operation", "list_quarantine").
			FileContext(dir, 0).
			Build()
	}
	slices.SortFunc(files, func(a, b FileInfo) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return files, nil
}

// Apply removes expired files from dir. Removal failures are logged and
// skipped; cancellation stops the run between files.
func (p AgePolicy) Apply(ctx context.Context, fsys afero.Fs, dir string) (*PurgeResult, error) {
	res := &PurgeResult{}
	if p.MaxAge <= 0 {
		return res, nil
	}
	log := logger.Global().Module(component)

	files, err := GetQuarantinedFiles(fsys, dir)
	if err != nil {
		return res, err
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	maxDeletions := p.MaxDeletions
	if maxDeletions <= 0 {
		maxDeletions = DefaultMaxDeletions
	}
	expirationTime := now().Add(-p.MaxAge)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return res, errors.New(err).
				Component(component).
				Category(errors.CategoryCancellation).
				Build()
		}
		// files are sorted, everything after this one is newer
		if !file.Timestamp.Before(expirationTime) {
			break
		}

		if err := fsys.Remove(file.Path); err != nil {
			res.Failed++
			log.Warn("failed to remove quarantined file",
				logger.String("path", file.Path),
				logger.Error(err))
			continue
		}
		res.Deleted = append(res.Deleted, file.Path)
		res.BytesFreed += file.Size
		log.Debug("quarantined file deleted",
			logger.String("path", file.Path),
			logger.Duration("age", now().Sub(file.Timestamp)))

		if len(res.Deleted) >= maxDeletions {
			res.LimitReached = true
			break
		}
	}

	log.Info("quarantine retention applied",
		logger.String("dir", dir),
		logger.Int("files_deleted", len(res.Deleted)),
		logger.Int64("bytes_freed", res.BytesFreed),
		logger.Int("failed", res.Failed))
	return res, nil
}
