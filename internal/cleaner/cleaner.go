// Package cleaner reclaims media and data providers that nothing in a
// presentation references any more.
//
// A pass marks every payload reachable from the undo history, the document
// tree and the external-file registry, releases unreachable registry
// entries, and deletes unreferenced providers. File providers are moved to
// the quarantine directory rather than unlinked. Individual failures are
// logged and skipped, so a pass can always be re-run.
package cleaner

import (
	"context"
	"iter"
	"time"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/observability/metrics"
)

const component = "cleaner"

// History exposes the payloads referenced by recorded commands.
type History interface {
	UsedMediaData() iter.Seq[media.MediaData]
}

// MediaTree is a document tree whose nodes carry media attachments.
type MediaTree interface {
	// VisitDepthFirst calls visit with the media attached to each node in
	// depth-first order. A false return stops the walk.
	VisitDepthFirst(visit func(attached []media.MediaData) bool)
}

// defragmenter is implemented by payloads split over several segments.
type defragmenter interface {
	NeedsDefragment() bool
	Defragment(ctx context.Context) (int64, error)
}

// Phase names a stage of a cleanup pass.
type Phase string

const (
	PhaseMark       Phase = metrics.PhaseMark
	PhaseSweepMedia Phase = metrics.PhaseSweepMedia
	PhaseSweepData  Phase = metrics.PhaseSweepData
)

// Progress reports how far a phase has advanced.
type Progress struct {
	Phase Phase
	Done  int
	Total int
}

// Failure records an item the pass could not process.
type Failure struct {
	Item string
	ID   string
	Err  error
}

// Result summarizes a cleanup pass.
type Result struct {
	ReachableMedia    int
	DeletedMedia      []string
	DeletedProviders  []string
	Defragmented      []string
	BytesDefragmented int64
	Failures          []Failure
	Duration          time.Duration
}

// Config wires a Cleaner to the registries and the roots it marks from.
// Media and Providers are required; the roots are optional.
type Config struct {
	Media     *media.Manager
	Providers *media.ProviderManager

	History  History
	Tree     MediaTree
	External *media.ExternalFileRegistry

	// Defragment coalesces reachable multi-segment audio onto a single
	// provider during the sweep.
	Defragment bool

	Logger  logger.Logger
	Metrics *metrics.CleanupMetrics
}

// Cleaner runs mark-and-sweep passes over a presentation's registries.
type Cleaner struct {
	cfg Config
	log logger.Logger
}

// New validates cfg and returns a Cleaner.
func New(cfg Config) (*Cleaner, error) {
	if cfg.Media == nil || cfg.Providers == nil {
		return nil, errors.ArgumentDomain(component, "cleaner requires a media registry and a provider registry")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Global().Module(component)
	}
	return &Cleaner{cfg: cfg, log: log}, nil
}

// Cleanup runs one pass. progress may be nil. If ctx is cancelled the pass
// stops between items and returns the partial result with a cancellation
// error; every registry change made so far is complete and consistent.
func (c *Cleaner) Cleanup(ctx context.Context, progress func(Progress)) (*Result, error) {
	start := time.Now()
	res := &Result{}
	report := func(p Phase, done, total int) {
		if progress != nil {
			progress(Progress{Phase: p, Done: done, Total: total})
		}
	}

	err := c.run(ctx, res, report)
	res.Duration = time.Since(start)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	c.cfg.Metrics.RecordRun(status)

	c.log.Info("cleanup finished",
		logger.Int("reachable_media", res.ReachableMedia),
		logger.Int("deleted_media", len(res.DeletedMedia)),
		logger.Int("deleted_providers", len(res.DeletedProviders)),
		logger.Int("defragmented", len(res.Defragmented)),
		logger.Int("failures", len(res.Failures)),
		logger.Duration("duration", res.Duration),
		logger.Bool("cancelled", err != nil))
	return res, err
}

func (c *Cleaner) run(ctx context.Context, res *Result, report func(Phase, int, int)) error {
	phaseStart := time.Now()
	reachable, err := c.mark(ctx)
	if err != nil {
		return err
	}
	res.ReachableMedia = len(reachable)
	c.cfg.Metrics.SetReachableMedia(len(reachable))
	c.cfg.Metrics.RecordPhaseDuration(metrics.PhaseMark, time.Since(phaseStart).Seconds())
	report(PhaseMark, len(reachable), len(reachable))

	phaseStart = time.Now()
	if err := c.sweepMedia(ctx, reachable, res, report); err != nil {
		return err
	}
	c.cfg.Metrics.RecordPhaseDuration(metrics.PhaseSweepMedia, time.Since(phaseStart).Seconds())

	phaseStart = time.Now()
	if err := c.sweepProviders(ctx, reachable, res, report); err != nil {
		return err
	}
	c.cfg.Metrics.RecordPhaseDuration(metrics.PhaseSweepData, time.Since(phaseStart).Seconds())
	return nil
}

// mark collects every payload reachable from the roots, keyed by identity.
func (c *Cleaner) mark(ctx context.Context) (map[string]media.MediaData, error) {
	reachable := make(map[string]media.MediaData)
	add := func(md media.MediaData) {
		if md != nil {
			reachable[md.ID()] = md
		}
	}

	if c.cfg.History != nil {
		for md := range c.cfg.History.UsedMediaData() {
			add(md)
		}
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	if c.cfg.Tree != nil {
		var walkErr error
		c.cfg.Tree.VisitDepthFirst(func(attached []media.MediaData) bool {
			if walkErr = checkCancelled(ctx); walkErr != nil {
				return false
			}
			for _, md := range attached {
				add(md)
			}
			return true
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	if c.cfg.External != nil {
		for _, f := range c.cfg.External.Files() {
			for _, md := range f.UsedMediaData() {
				add(md)
			}
		}
	}
	return reachable, checkCancelled(ctx)
}

func (c *Cleaner) sweepMedia(ctx context.Context, reachable map[string]media.MediaData, res *Result, report func(Phase, int, int)) error {
	all := c.cfg.Media.All()
	for i, md := range all {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		report(PhaseSweepMedia, i, len(all))

		id := md.ID()
		if _, ok := reachable[id]; !ok {
			if err := c.cfg.Media.Delete(id); err != nil {
				c.fail(res, metrics.ItemMedia, id, err)
				continue
			}
			res.DeletedMedia = append(res.DeletedMedia, id)
			c.cfg.Metrics.RecordItem(metrics.ItemMedia, metrics.ActionDeleted)
			c.log.Debug("media released", logger.String("media_id", id))
			continue
		}

		if !c.cfg.Defragment {
			continue
		}
		d, ok := md.(defragmenter)
		if !ok || !d.NeedsDefragment() {
			continue
		}
		n, err := d.Defragment(ctx)
		if err != nil {
			if errors.IsCategory(err, errors.CategoryCancellation) {
				return err
			}
			c.fail(res, metrics.ItemMedia, id, err)
			continue
		}
		res.Defragmented = append(res.Defragmented, id)
		res.BytesDefragmented += n
		c.cfg.Metrics.RecordItem(metrics.ItemMedia, metrics.ActionDefragment)
		c.cfg.Metrics.RecordBytesDefragmented(n)
	}
	report(PhaseSweepMedia, len(all), len(all))
	return nil
}

func (c *Cleaner) sweepProviders(ctx context.Context, reachable map[string]media.MediaData, res *Result, report func(Phase, int, int)) error {
	// providers are collected after defragmentation so coalesced payloads
	// no longer pin their old segments
	keep := make(map[string]struct{})
	for _, md := range reachable {
		for _, p := range md.UsedDataProviders() {
			keep[p.ID()] = struct{}{}
		}
	}
	if c.cfg.External != nil {
		for _, f := range c.cfg.External.Files() {
			for _, p := range f.UsedDataProviders() {
				keep[p.ID()] = struct{}{}
			}
		}
	}

	all := c.cfg.Providers.All()
	for i, p := range all {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		report(PhaseSweepData, i, len(all))

		id := p.ID()
		if _, ok := keep[id]; ok {
			continue
		}
		if err := c.cfg.Providers.Delete(id); err != nil {
			c.fail(res, metrics.ItemProvider, id, err)
			continue
		}
		res.DeletedProviders = append(res.DeletedProviders, id)
		c.cfg.Metrics.RecordItem(metrics.ItemProvider, metrics.ActionDeleted)
	}
	report(PhaseSweepData, len(all), len(all))
	return nil
}

func (c *Cleaner) fail(res *Result, item, id string, err error) {
	res.Failures = append(res.Failures, Failure{Item: item, ID: id, Err: err})
	c.cfg.Metrics.RecordItem(item, metrics.ActionFailed)
	c.log.Warn("cleanup skipped item",
		logger.String("item", item),
		logger.String("id", id),
		logger.Error(err))
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryCancellation).
			Build()
	}
	return nil
}
