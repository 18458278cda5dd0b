package inspect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/mediaedit/internal/audio"
	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/errors"
)

// Command creates the inspect command, which prints the format of WAV files.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [file.wav...]",
		Short: "Show the PCM format of WAV files",
		Long:  `Validate the RIFF/WAV headers of each file and print its format, PCM length and duration.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := inspectFile(ctx, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}

func inspectFile(ctx *conf.Context, path string) error {
	f, err := ctx.Fs.Open(path)
	if err != nil {
		return errors.FileError(err, path, 0)
	}
	defer f.Close()

	info, err := audio.ReadWAVInfo(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = fmt.Fprintf(ctx.Out, "%s\t%s\t%d bytes\t%s\n", path, info.Format, info.DataBytes, info.Duration())
	return err
}
