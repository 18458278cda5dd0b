package cleaner

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/mediaedit/internal/audio"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/observability/metrics"
	"github.com/tphakala/mediaedit/internal/pcm"
	"github.com/tphakala/mediaedit/internal/undo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const dataDir = "/project/data"

// tree is a flat stand-in for a document: one node per attachment list.
type tree [][]media.MediaData

func (t tree) VisitDepthFirst(visit func([]media.MediaData) bool) {
	for _, attached := range t {
		if !visit(attached) {
			return
		}
	}
}

// touch is a reversible no-op command that references media.
type touch struct {
	undo.BaseCommand
	used []media.MediaData
}

func (c *touch) Execute() error                   { return nil }
func (c *touch) UnExecute() error                 { return nil }
func (c *touch) CanExecute() bool                 { return true }
func (c *touch) CanUnExecute() bool               { return true }
func (c *touch) UsedMediaData() []media.MediaData { return c.used }

type fixture struct {
	fs        afero.Fs
	registry  *media.Manager
	providers *media.ProviderManager
	history   *undo.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	return &fixture{
		fs:        fs,
		registry:  media.NewManager(),
		providers: media.NewProviderManager(fs, dataDir, "deleted"),
		history:   undo.NewManager(),
	}
}

// rawMedia registers a payload backed by one written file provider.
func (f *fixture) rawMedia(t *testing.T, content string) (*media.RawMediaData, *media.FileDataProvider) {
	t.Helper()
	p, err := f.providers.CreateFileProvider(media.MimeTypeBinary)
	require.NoError(t, err)
	w, err := p.OpenOutputStream()
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	md := media.NewRawMediaData(media.MimeTypeBinary, p)
	require.NoError(t, f.registry.Add(md))
	return md, p
}

func (f *fixture) cleaner(t *testing.T, roots tree, opts ...func(*Config)) *Cleaner {
	t.Helper()
	cfg := Config{
		Media:     f.registry,
		Providers: f.providers,
		History:   f.history,
		Tree:      roots,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestCleanupRetainsReachableAndDeletesRest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a, pa := f.rawMedia(t, "a")
	b, pb := f.rawMedia(t, "b")
	c, pc := f.rawMedia(t, "c")
	d, pd := f.rawMedia(t, "d")

	require.NoError(t, f.history.Execute(&touch{BaseCommand: undo.BaseCommand{Short: "touch"}, used: []media.MediaData{c}}))

	res, err := f.cleaner(t, tree{{a}, {b}}).Cleanup(t.Context(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.ReachableMedia)
	assert.Equal(t, []string{d.ID()}, res.DeletedMedia)
	assert.Equal(t, []string{pd.ID()}, res.DeletedProviders)
	assert.Empty(t, res.Failures)

	for _, md := range []media.MediaData{a, b, c} {
		assert.True(t, f.registry.Contains(md.ID()))
	}
	assert.False(t, f.registry.Contains(d.ID()))
	for _, p := range []*media.FileDataProvider{pa, pb, pc} {
		assert.True(t, f.providers.Contains(p.ID()))
	}

	quarantined, err := afero.ReadFile(f.fs, filepath.Join(dataDir, "deleted", pd.RelativePath()))
	require.NoError(t, err)
	assert.Equal(t, "d", string(quarantined))
}

func TestCleanupIsRerunnable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a, _ := f.rawMedia(t, "a")
	_, _ = f.rawMedia(t, "orphan")
	c := f.cleaner(t, tree{{a}})

	_, err := c.Cleanup(t.Context(), nil)
	require.NoError(t, err)

	res, err := c.Cleanup(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.DeletedMedia)
	assert.Empty(t, res.DeletedProviders)
	assert.Equal(t, 1, f.registry.Len())
	assert.Equal(t, 1, f.providers.Len())
}

func TestBusyProviderIsSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, busy := f.rawMedia(t, "busy")
	_, idle := f.rawMedia(t, "idle")

	r, err := busy.OpenInputStream()
	require.NoError(t, err)

	c := f.cleaner(t, nil)
	res, err := c.Cleanup(t.Context(), nil)
	require.NoError(t, err, "per-item failures do not fail the pass")

	require.Len(t, res.Failures, 1)
	assert.Equal(t, busy.ID(), res.Failures[0].ID)
	assert.True(t, errors.IsResourceBusy(res.Failures[0].Err))
	assert.Equal(t, []string{idle.ID()}, res.DeletedProviders)
	assert.True(t, f.providers.Contains(busy.ID()))

	require.NoError(t, r.Close())
	res, err = c.Cleanup(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{busy.ID()}, res.DeletedProviders)
	assert.Equal(t, 0, f.providers.Len())
}

func TestExternalFilesAreRoots(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	viaMedia, _ := f.rawMedia(t, "logo")
	css := f.providers.CreateMemoryProvider("text/css")

	external := media.NewExternalFileRegistry()
	require.NoError(t, external.Add(&media.ExternalFileData{
		Name:      "style.css",
		Media:     []media.MediaData{viaMedia},
		Providers: []media.DataProvider{css},
	}))

	res, err := f.cleaner(t, nil, func(cfg *Config) { cfg.External = external }).Cleanup(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.DeletedMedia)
	assert.Empty(t, res.DeletedProviders)
	assert.True(t, f.providers.Contains(css.ID()))
}

func TestCleanupDefragmentsReachableAudio(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	format := pcm.MustFormat(1, 8000, 16)
	a, err := audio.New(f.registry, f.providers, format)
	require.NoError(t, err)

	first, second := bytes.Repeat([]byte{1, 2}, 800), bytes.Repeat([]byte{3, 4}, 800)
	require.NoError(t, a.AppendAudioData(bytes.NewReader(first), 100*time.Millisecond))
	require.NoError(t, a.AppendAudioData(bytes.NewReader(second), 100*time.Millisecond))
	require.Equal(t, 2, f.providers.Len())

	res, err := f.cleaner(t, tree{{a}}, func(cfg *Config) { cfg.Defragment = true }).Cleanup(t.Context(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID()}, res.Defragmented)
	assert.Equal(t, int64(3200), res.BytesDefragmented)
	assert.Len(t, res.DeletedProviders, 2, "old segments are reclaimed")
	assert.Equal(t, 1, f.providers.Len())
	assert.False(t, a.NeedsDefragment())
}

func TestUndoHistoryKeepsRemovedAudio(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a, err := audio.New(f.registry, f.providers, pcm.MustFormat(1, 8000, 16))
	require.NoError(t, err)
	require.NoError(t, a.AppendAudioData(bytes.NewReader(make([]byte, 1600)), 100*time.Millisecond))

	rm, err := audio.NewRemoveCommand(a, 0, a.Duration())
	require.NoError(t, err)
	require.NoError(t, f.history.Execute(rm))
	require.Empty(t, a.UsedDataProviders())

	res, err := f.cleaner(t, tree{{a}}).Cleanup(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.DeletedProviders, "undo stack still needs the removed segment")

	require.NoError(t, f.history.Undo())
	assert.Equal(t, 100*time.Millisecond, a.Duration())
}

func TestCancelledCleanupLeavesRegistries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, _ = f.rawMedia(t, "orphan")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res, err := f.cleaner(t, nil).Cleanup(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	require.NotNil(t, res)
	assert.Equal(t, 1, f.registry.Len())
	assert.Equal(t, 1, f.providers.Len())
}

func TestCancelDuringTreeWalk(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(t.Context())

	visited := 0
	walk := cancellingTree{visit: func() {
		visited++
		if visited == 2 {
			cancel()
		}
	}}

	c, err := New(Config{Media: f.registry, Providers: f.providers, Tree: walk})
	require.NoError(t, err)
	_, err = c.Cleanup(ctx, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.Equal(t, 2, visited)
}

type cancellingTree struct{ visit func() }

func (c cancellingTree) VisitDepthFirst(visit func([]media.MediaData) bool) {
	for range 5 {
		c.visit()
		if !visit(nil) {
			return
		}
	}
}

func TestProgressAndMetrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a, _ := f.rawMedia(t, "a")
	_, _ = f.rawMedia(t, "orphan")

	cm, err := metrics.NewCleanupMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	var phases []Phase
	progress := func(p Progress) {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
		assert.LessOrEqual(t, p.Done, p.Total)
	}

	c := f.cleaner(t, tree{{a}}, func(cfg *Config) { cfg.Metrics = cm })
	_, err = c.Cleanup(t.Context(), progress)
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseMark, PhaseSweepMedia, PhaseSweepData}, phases)
	assert.Positive(t, testutil.CollectAndCount(cm))
}

func TestNewRequiresRegistries(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.True(t, errors.IsArgumentDomain(err))
}
