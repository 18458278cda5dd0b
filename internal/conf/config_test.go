package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultChannels, settings.Audio.Channels)
	assert.Equal(t, DefaultSampleRate, settings.Audio.SampleRate)
	assert.Equal(t, DefaultBitDepth, settings.Audio.BitDepth)
	assert.Equal(t, DefaultQuarantineDir, settings.Project.QuarantineDir)
	assert.True(t, settings.Cleanup.Defragment)
	assert.False(t, settings.Telemetry.Enabled)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir, settings.Project.DataDir)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
debug: true
audio:
  channels: 2
  samplerate: 48000
  bitdepth: 24
cleanup:
  defragment: false
project:
  quarantinedir: trash
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Equal(t, 2, settings.Audio.Channels)
	assert.Equal(t, 48000, settings.Audio.SampleRate)
	assert.Equal(t, 24, settings.Audio.BitDepth)
	assert.False(t, settings.Cleanup.Defragment)
	assert.Equal(t, "trash", settings.Project.QuarantineDir)
	assert.Equal(t, DefaultDataDir, settings.Project.DataDir)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("MEDIAEDIT_AUDIO_SAMPLERATE", "22050")

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 22050, settings.Audio.SampleRate)
}

func TestLoadWithFlagsOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := ConfigPath("/proj")
	require.NoError(t, afero.WriteFile(fs, path, []byte("project:\n  datadir: fromfile\n"), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("datadir", DefaultDataDir, "")
	flags.Bool("defragment", true, "")
	require.NoError(t, flags.Parse([]string{"--defragment=false"}))

	settings, err := LoadWithFlags(fs, path, flags)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", settings.Project.DataDir, "unset flags do not override the file")
	assert.False(t, settings.Cleanup.Defragment)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  channels: 0\n  bitdepth: 12\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "channels")
	assert.Contains(t, ve.Errors[0], "bit depth")
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"defaults are valid", func(*Settings) {}, ""},
		{"empty data dir", func(s *Settings) { s.Project.DataDir = "" }, "data directory"},
		{"nested quarantine", func(s *Settings) { s.Project.QuarantineDir = "a/b" }, "plain subdirectory"},
		{"zero sample rate", func(s *Settings) { s.Audio.SampleRate = 0 }, "sample rate"},
		{"bad log level", func(s *Settings) { s.Logging.DefaultLevel = "loud" }, "log level"},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, "DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Defaults()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("/nested", ConfigFileName)
	in := Defaults()
	in.Audio.SampleRate = 16000

	require.NoError(t, SaveSettings(fs, in, path))

	out, err := LoadWithFlags(fs, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 16000, out.Audio.SampleRate)
	assert.Equal(t, in.Project, out.Project)
}

func TestParseRetentionPeriod(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"0", 0, false},
		{"48", 48 * time.Hour, false},
		{"12h", 12 * time.Hour, false},
		{"30d", 30 * day, false},
		{"2w", 14 * day, false},
		{"1m", 30 * day, false},
		{"1y", 365 * day, false},
		{"", 0, true},
		{"3x", 0, true},
		{"d", 0, true},
		{"-1d", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRetentionPeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectPaths(t *testing.T) {
	s := Defaults()
	assert.Equal(t, filepath.Join("/proj", DefaultDataDir), s.DataPath("/proj"))
	assert.Equal(t, filepath.Join("/proj", DefaultManifestFile), s.ManifestPath("/proj"))

	s.Project.DataDir = "/srv/media"
	assert.Equal(t, "/srv/media", s.DataPath("/proj"))
}
