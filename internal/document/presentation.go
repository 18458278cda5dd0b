package document

import (
	"context"

	"github.com/spf13/afero"

	"github.com/tphakala/mediaedit/internal/audio"
	"github.com/tphakala/mediaedit/internal/cleaner"
	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/observability/metrics"
	"github.com/tphakala/mediaedit/internal/pcm"
	"github.com/tphakala/mediaedit/internal/undo"
)

// Options configure a Presentation.
type Options struct {
	DataDir       string
	QuarantineDir string
	// Format is the default PCM format for new audio.
	Format *pcm.FormatInfo
	// Defragment enables audio defragmentation during cleanup.
	Defragment bool

	Logger         logger.Logger
	UndoMetrics    *metrics.UndoMetrics
	CleanupMetrics *metrics.CleanupMetrics
}

// OptionsFromSettings derives presentation options from loaded settings.
func OptionsFromSettings(s *conf.Settings) (Options, error) {
	if s == nil {
		return Options{}, errors.ArgumentDomain(component, "settings must not be nil")
	}
	format, err := pcm.NewFormatInfo(s.Audio.Channels, s.Audio.SampleRate, s.Audio.BitDepth)
	if err != nil {
		return Options{}, err
	}
	return Options{
		DataDir:       s.Project.DataDir,
		QuarantineDir: s.Project.QuarantineDir,
		Format:        format,
		Defragment:    s.Cleanup.Defragment,
	}, nil
}

// Presentation owns everything one open document needs: the node tree, the
// media and provider registries, the external-file registry and the undo
// history. Nothing is shared between presentations.
type Presentation struct {
	root      *Node
	registry  *media.Manager
	providers *media.ProviderManager
	external  *media.ExternalFileRegistry
	history   *undo.Manager
	cleaner   *cleaner.Cleaner

	format *pcm.FormatInfo
	log    logger.Logger
}

// New creates an empty presentation whose file providers live on fs.
func New(fs afero.Fs, opts Options) (*Presentation, error) {
	if fs == nil {
		return nil, errors.ArgumentDomain(component, "filesystem must not be nil")
	}
	if opts.DataDir == "" {
		opts.DataDir = conf.DefaultDataDir
	}
	if opts.QuarantineDir == "" {
		opts.QuarantineDir = conf.DefaultQuarantineDir
	}
	if opts.Format == nil {
		opts.Format = pcm.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module(component)
	}

	p := &Presentation{
		root:      NewNode("root"),
		registry:  media.NewManager(),
		providers: media.NewProviderManager(fs, opts.DataDir, opts.QuarantineDir),
		external:  media.NewExternalFileRegistry(),
		history: undo.NewManager(
			undo.WithLogger(log.Module("undo")),
			undo.WithMetrics(opts.UndoMetrics),
		),
		format: opts.Format.Copy(),
		log:    log,
	}

	c, err := cleaner.New(cleaner.Config{
		Media:      p.registry,
		Providers:  p.providers,
		History:    p.history,
		Tree:       p.root,
		External:   p.external,
		Defragment: opts.Defragment,
		Logger:     log.Module("cleaner"),
		Metrics:    opts.CleanupMetrics,
	})
	if err != nil {
		return nil, err
	}
	p.cleaner = c
	return p, nil
}

func (p *Presentation) Root() *Node                                { return p.root }
func (p *Presentation) Media() *media.Manager                      { return p.registry }
func (p *Presentation) Providers() *media.ProviderManager          { return p.providers }
func (p *Presentation) ExternalFiles() *media.ExternalFileRegistry { return p.external }
func (p *Presentation) History() *undo.Manager                     { return p.history }

// Format returns a copy of the default audio format.
func (p *Presentation) Format() *pcm.FormatInfo { return p.format.Copy() }

// NewAudio creates an empty registered audio payload in the default format.
func (p *Presentation) NewAudio() (*audio.MediaData, error) {
	return audio.New(p.registry, p.providers, p.format, audio.WithLogger(p.log.Module("audio")))
}

// Cleanup garbage-collects unreferenced media and providers.
func (p *Presentation) Cleanup(ctx context.Context, progress func(cleaner.Progress)) (*cleaner.Result, error) {
	return p.cleaner.Cleanup(ctx, progress)
}

// IsDirty reports whether the presentation changed since MarkSaved.
func (p *Presentation) IsDirty() bool { return !p.history.IsOnDirtyMarker() }

// MarkSaved records the current state as saved.
func (p *Presentation) MarkSaved() { p.history.SetDirtyMarker() }
