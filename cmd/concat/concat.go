package concat

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/mediaedit/internal/audio"
	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/document"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/pcm"
)

// Command creates the concat command, which joins audio files into one WAV.
func Command(ctx *conf.Context) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "concat [input...]",
		Short: "Join WAV and FLAC files into one WAV file",
		Long: `Decode each input, merge the audio in argument order and export the result
as a WAV file. All inputs must share one PCM format.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx, output, args)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "out.wav", "Path of the WAV file to write")
	return cmd
}

func run(cmd *cobra.Command, ctx *conf.Context, output string, inputs []string) error {
	format, err := inputFormat(ctx, inputs[0])
	if err != nil {
		return err
	}

	// decoded audio is staged in memory; only the result touches ctx.Fs
	p, err := document.New(afero.NewMemMapFs(), document.Options{Format: format})
	if err != nil {
		return err
	}

	result, err := p.NewAudio()
	if err != nil {
		return err
	}
	for _, path := range inputs {
		part, err := p.NewAudio()
		if err != nil {
			return err
		}
		if err := appendFile(ctx, part, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := result.Merge(part); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	out, err := ctx.Fs.Create(output)
	if err != nil {
		return errors.FileError(err, output, 0)
	}
	if err := result.ExportWAV(cmd.Context(), out); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return errors.FileError(err, output, result.PCMLength())
	}

	_, err = fmt.Fprintf(ctx.Out, "wrote %s: %s, %s\n", output, result.Format(), result.Duration())
	return err
}

// inputFormat takes the format from a WAV header, or from settings for
// FLAC input whose format is only known after decoding starts.
func inputFormat(ctx *conf.Context, path string) (*pcm.FormatInfo, error) {
	if audio.IsFLAC(path) {
		a := ctx.Settings.Audio
		return pcm.NewFormatInfo(a.Channels, a.SampleRate, a.BitDepth)
	}
	f, err := ctx.Fs.Open(path)
	if err != nil {
		return nil, errors.FileError(err, path, 0)
	}
	defer f.Close()
	info, err := audio.ReadWAVInfo(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info.Format, nil
}

func appendFile(ctx *conf.Context, m *audio.MediaData, path string) error {
	f, err := ctx.Fs.Open(path)
	if err != nil {
		return errors.FileError(err, path, 0)
	}
	defer f.Close()
	return m.AppendEncoded(f, path)
}
