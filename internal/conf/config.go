// config.go: settings structure and loading for mediaedit
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/mediaedit/internal/logger"
)

// EnvPrefix is the prefix of environment variables overriding settings,
// e.g. MEDIAEDIT_AUDIO_SAMPLERATE=48000.
const EnvPrefix = "MEDIAEDIT"

// ConfigFileName is the default settings file name inside a project directory.
const ConfigFileName = "mediaedit.yaml"

// Settings contains all configuration options for mediaedit.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"` // true to enable debug mode

	Logging logger.LoggingConfig `yaml:"logging" mapstructure:"logging"` // logging configuration

	Project   ProjectConfig   `yaml:"project" mapstructure:"project"`
	Audio     AudioConfig     `yaml:"audio" mapstructure:"audio"`
	Cleanup   CleanupConfig   `yaml:"cleanup" mapstructure:"cleanup"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// ProjectConfig locates the files of a presentation on disk.
type ProjectConfig struct {
	DataDir       string `yaml:"datadir" mapstructure:"datadir"`             // directory holding file-backed data providers
	QuarantineDir string `yaml:"quarantinedir" mapstructure:"quarantinedir"` // subdirectory of DataDir receiving collected providers
	ManifestFile  string `yaml:"manifestfile" mapstructure:"manifestfile"`   // presentation manifest, relative to the project directory
}

// AudioConfig is the default PCM format of new audio media.
type AudioConfig struct {
	Channels   int `yaml:"channels" mapstructure:"channels"`
	SampleRate int `yaml:"samplerate" mapstructure:"samplerate"`
	BitDepth   int `yaml:"bitdepth" mapstructure:"bitdepth"`
}

// CleanupConfig controls the media garbage collector.
type CleanupConfig struct {
	Defragment          bool   `yaml:"defragment" mapstructure:"defragment"`                   // consolidate multi-segment audio during cleanup
	QuarantineRetention string `yaml:"quarantineretention" mapstructure:"quarantineretention"` // age after which quarantined files are purged, "0" keeps them
}

// TelemetryConfig controls optional Sentry error reporting.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// flagKeys maps command-line flag names to setting keys.
var flagKeys = map[string]string{
	"debug":      "debug",
	"datadir":    "project.datadir",
	"manifest":   "project.manifestfile",
	"defragment": "cleanup.defragment",
	"retention":  "cleanup.quarantineretention",
	"log-level":  "logging.default_level",
}

// Load reads settings from the given YAML file on the OS filesystem,
// applies defaults and MEDIAEDIT_ environment overrides, and validates the
// result. An empty path or a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	return LoadWithFlags(afero.NewOsFs(), path, nil)
}

// LoadWithFlags is Load reading from fs, with command-line flags taking
// precedence over the file and the environment. Only flags that were set
// explicitly override.
func LoadWithFlags(fs afero.Fs, path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaultConfig(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// SaveSettings writes settings as YAML to path on fs, creating parent
// directories.
func SaveSettings(fs afero.Fs, settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// ConfigPath returns the settings file of the project rooted at dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// DataPath returns the data directory of the project rooted at dir.
func (s *Settings) DataPath(dir string) string {
	if filepath.IsAbs(s.Project.DataDir) {
		return s.Project.DataDir
	}
	return filepath.Join(dir, s.Project.DataDir)
}

// ManifestPath returns the manifest file of the project rooted at dir.
func (s *Settings) ManifestPath(dir string) string {
	if filepath.IsAbs(s.Project.ManifestFile) {
		return s.Project.ManifestFile
	}
	return filepath.Join(dir, s.Project.ManifestFile)
}
