package project

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/document"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/manifest"
)

// Command creates the init command, which sets up an empty project with its
// own settings file.
func Command(ctx *conf.Context) *cobra.Command {
	var channels, sampleRate, bitDepth int

	cmd := &cobra.Command{
		Use:   "init [project dir]",
		Short: "Create an empty project",
		Long: `Write the project settings file and an empty manifest. Later commands on
the project read its settings file unless --config is given, so the PCM
format chosen here applies to every file added afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio := &ctx.Settings.Audio
			if cmd.Flags().Changed("channels") {
				audio.Channels = channels
			}
			if cmd.Flags().Changed("samplerate") {
				audio.SampleRate = sampleRate
			}
			if cmd.Flags().Changed("bitdepth") {
				audio.BitDepth = bitDepth
			}
			return run(ctx, args[0])
		},
	}

	cmd.Flags().IntVar(&channels, "channels", conf.DefaultChannels, "Channel count of the project audio")
	cmd.Flags().IntVar(&sampleRate, "samplerate", conf.DefaultSampleRate, "Sample rate of the project audio")
	cmd.Flags().IntVar(&bitDepth, "bitdepth", conf.DefaultBitDepth, "Bit depth of the project audio")
	return cmd
}

func run(ctx *conf.Context, dir string) error {
	if err := conf.ValidateSettings(ctx.Settings); err != nil {
		return err
	}

	manifestPath := ctx.Settings.ManifestPath(dir)
	exists, err := afero.Exists(ctx.Fs, manifestPath)
	if err != nil {
		return errors.FileError(err, manifestPath, 0)
	}
	if exists {
		return errors.State("project", fmt.Errorf("project %s is already initialized", dir))
	}

	opts, err := document.OptionsFromSettings(ctx.Settings)
	if err != nil {
		return err
	}
	opts.DataDir = ctx.Settings.DataPath(dir)
	p, err := document.New(ctx.Fs, opts)
	if err != nil {
		return err
	}
	if err := ctx.Fs.MkdirAll(opts.DataDir, 0o755); err != nil {
		return errors.FileError(err, opts.DataDir, 0)
	}

	if err := conf.SaveSettings(ctx.Fs, ctx.Settings, conf.ConfigPath(dir)); err != nil {
		return err
	}
	if err := manifest.Save(ctx.Fs, manifestPath, p); err != nil {
		return err
	}

	_, err = fmt.Fprintf(ctx.Out, "initialized %s: %s\n", dir, p.Format())
	return err
}
