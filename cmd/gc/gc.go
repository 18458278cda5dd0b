package gc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/mediaedit/internal/cleaner"
	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/diskmanager"
	"github.com/tphakala/mediaedit/internal/document"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/manifest"
	"github.com/tphakala/mediaedit/internal/observability/metrics"
)

// Command creates the gc command, which runs a cleanup pass over a project.
func Command(ctx *conf.Context) *cobra.Command {
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "gc [project dir]",
		Short: "Reclaim unreferenced media and data files of a project",
		Long: `Load the project manifest, delete media that nothing references, move
unreferenced data files to the quarantine directory and, unless disabled,
defragment multi-segment audio. The manifest is saved afterwards, then
quarantined files older than the retention period are purged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx, args[0], metricsFile)
		},
	}

	cmd.Flags().StringVar(&metricsFile, "metrics-textfile", "", "Write cleanup metrics in Prometheus text format to this file")
	return cmd
}

func run(cmd *cobra.Command, ctx *conf.Context, dir, metricsFile string) error {
	log := logger.Global().Module("gc")

	registry := prometheus.NewRegistry()
	cm, err := metrics.NewCleanupMetrics(registry)
	if err != nil {
		return err
	}

	opts, err := document.OptionsFromSettings(ctx.Settings)
	if err != nil {
		return err
	}
	opts.DataDir = ctx.Settings.DataPath(dir)
	opts.CleanupMetrics = cm

	p, res, err := collect(cmd.Context(), ctx.Fs, ctx.Settings.ManifestPath(dir), opts, func(pr cleaner.Progress) {
		log.Trace("cleanup progress",
			logger.String("phase", string(pr.Phase)),
			logger.Int("done", pr.Done),
			logger.Int("total", pr.Total))
	})
	if err != nil {
		return err
	}

	retention, err := conf.ParseRetentionPeriod(ctx.Settings.Cleanup.QuarantineRetention)
	if err != nil {
		return err
	}
	quarantine := filepath.Join(p.Providers().DataDir(), p.Providers().QuarantineDir())
	purged, err := diskmanager.AgePolicy{MaxAge: retention}.Apply(cmd.Context(), ctx.Fs, quarantine)
	if err != nil {
		return err
	}

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			return fmt.Errorf("error writing metrics: %w", err)
		}
	}

	_, err = fmt.Fprintf(ctx.Out, "reachable %d, deleted media %d, deleted providers %d, defragmented %d (%d bytes), purged %d, failures %d\n",
		res.ReachableMedia, len(res.DeletedMedia), len(res.DeletedProviders),
		len(res.Defragmented), res.BytesDefragmented, len(purged.Deleted), len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(ctx.Out, "  skipped %s %s: %v\n", f.Item, f.ID, f.Err)
	}
	return err
}

// collect loads the manifest at path, runs one cleanup pass and saves the
// result. A cancelled pass is saved too: the providers it already moved to
// quarantine must not stay referenced by the manifest.
func collect(ctx context.Context, fs afero.Fs, path string, opts document.Options, progress func(cleaner.Progress)) (*document.Presentation, *cleaner.Result, error) {
	p, err := manifest.Load(fs, path, opts)
	if err != nil {
		return nil, nil, err
	}

	res, err := p.Cleanup(ctx, progress)
	if err != nil && !errors.IsCategory(err, errors.CategoryCancellation) {
		return p, res, err
	}

	// released media and defragmented clip lists must reach the manifest
	if saveErr := manifest.Save(fs, path, p); saveErr != nil {
		if err != nil {
			return p, res, errors.Join(err, saveErr)
		}
		return p, res, saveErr
	}
	return p, res, err
}
