package add

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/document"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/manifest"
)

// Command creates the add command, which imports audio files into a
// project as new nodes.
func Command(ctx *conf.Context) *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "add [project dir] [file...]",
		Short: "Add WAV or FLAC files to a project",
		Long: `Create the project when it has no manifest yet, then append one node per
file carrying the decoded audio. The additions are recorded as a single
transaction and the manifest is saved.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(ctx, args[0], args[1:], channel)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "audio", "Node channel the audio is attached to")
	return cmd
}

func run(ctx *conf.Context, dir string, files []string, channel string) error {
	opts, err := document.OptionsFromSettings(ctx.Settings)
	if err != nil {
		return err
	}
	opts.DataDir = ctx.Settings.DataPath(dir)
	manifestPath := ctx.Settings.ManifestPath(dir)

	p, created, err := manifest.Open(ctx.Fs, manifestPath, opts)
	if err != nil {
		return err
	}

	history := p.History()
	history.StartTransaction("Add audio", fmt.Sprintf("Add %d audio files", len(files)))
	for _, path := range files {
		if err := addFile(ctx, p, path, channel); err != nil {
			if cerr := history.CancelTransaction(); cerr != nil {
				return errors.Join(err, cerr)
			}
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := history.EndTransaction(); err != nil {
		return err
	}

	if err := manifest.Save(ctx.Fs, manifestPath, p); err != nil {
		return err
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	_, err = fmt.Fprintf(ctx.Out, "%s %s: %d nodes, %d media\n", verb, manifestPath, len(p.Root().Children()), p.Media().Len())
	return err
}

func addFile(ctx *conf.Context, p *document.Presentation, path, channel string) error {
	f, err := ctx.Fs.Open(path)
	if err != nil {
		return errors.FileError(err, path, 0)
	}
	defer f.Close()

	clip, err := p.NewAudio()
	if err != nil {
		return err
	}
	if err := clip.AppendEncoded(f, path); err != nil {
		return err
	}

	node := document.NewNode(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	insert, err := document.NewInsertNodeCommand(p.Root(), node, len(p.Root().Children()))
	if err != nil {
		return err
	}
	if err := p.History().Execute(insert); err != nil {
		return err
	}
	attach, err := document.NewSetMediaCommand(node, channel, clip)
	if err != nil {
		return err
	}
	return p.History().Execute(attach)
}
