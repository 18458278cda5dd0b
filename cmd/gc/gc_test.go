package gc

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediaedit/internal/cleaner"
	"github.com/tphakala/mediaedit/internal/document"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/manifest"
	"github.com/tphakala/mediaedit/internal/pcm"
)

const manifestPath = "/proj/presentation.yaml"

// saveOrphans saves a project holding n audio payloads that nothing
// references, each on its own data file.
func saveOrphans(t *testing.T, fs afero.Fs, n int) document.Options {
	t.Helper()
	opts := document.Options{DataDir: "/proj/data", Format: pcm.MustFormat(1, 8000, 16)}
	p, err := document.New(fs, opts)
	require.NoError(t, err)
	for range n {
		a, err := p.NewAudio()
		require.NoError(t, err)
		require.NoError(t, a.AppendAudioData(bytes.NewReader(make([]byte, 1600)), 100*time.Millisecond))
	}
	require.NoError(t, manifest.Save(fs, manifestPath, p))
	return document.Options{DataDir: opts.DataDir}
}

func TestCollectSavesCancelledPass(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	opts := saveOrphans(t, fs, 3)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	// providers 0 and 1 are quarantined before the cancellation is seen
	_, res, err := collect(ctx, fs, manifestPath, opts, func(pr cleaner.Progress) {
		if pr.Phase == cleaner.PhaseSweepData && pr.Done == 1 {
			cancel()
		}
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	require.NotNil(t, res)
	assert.Len(t, res.DeletedProviders, 2)

	reloaded, err := manifest.Load(fs, manifestPath, opts)
	require.NoError(t, err, "a cancelled pass leaves a loadable project")
	assert.Zero(t, reloaded.Media().Len())
	assert.Equal(t, 1, reloaded.Providers().Len())

	_, res, err = collect(t.Context(), fs, manifestPath, opts, nil)
	require.NoError(t, err)
	assert.Len(t, res.DeletedProviders, 1, "the next pass resumes where the cancelled one stopped")
}

func TestCollectMissingManifest(t *testing.T) {
	t.Parallel()

	_, _, err := collect(t.Context(), afero.NewMemMapFs(), manifestPath, document.Options{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
