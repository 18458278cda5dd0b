// defaults.go: default values for the configuration parameters
package conf

import (
	"github.com/spf13/viper"

	"github.com/tphakala/mediaedit/internal/logger"
)

// Default audio format: mono 16-bit at 44.1 kHz.
const (
	DefaultChannels   = 1
	DefaultSampleRate = 44100
	DefaultBitDepth   = 16

	DefaultDataDir       = "data"
	DefaultQuarantineDir = "deleted"
	DefaultManifestFile  = "presentation.yaml"

	DefaultQuarantineRetention = "30d"
)

// setDefaultConfig sets default values for every configuration parameter.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("project.datadir", DefaultDataDir)
	v.SetDefault("project.quarantinedir", DefaultQuarantineDir)
	v.SetDefault("project.manifestfile", DefaultManifestFile)

	v.SetDefault("audio.channels", DefaultChannels)
	v.SetDefault("audio.samplerate", DefaultSampleRate)
	v.SetDefault("audio.bitdepth", DefaultBitDepth)

	v.SetDefault("cleanup.defragment", true)
	v.SetDefault("cleanup.quarantineretention", DefaultQuarantineRetention)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
}

// Defaults returns a Settings populated with default values only.
func Defaults() *Settings {
	return &Settings{
		Logging: logger.LoggingConfig{
			DefaultLevel: logger.DefaultLogLevel,
			Timezone:     "Local",
			Console:      &logger.ConsoleOutput{Enabled: logger.DefaultConsoleEnabled, Level: logger.DefaultLogLevel},
			FileOutput:   &logger.FileOutput{Enabled: logger.DefaultFileEnabled, Path: logger.DefaultLogPath, Level: logger.DefaultLogLevel},
		},
		Project: ProjectConfig{
			DataDir:       DefaultDataDir,
			QuarantineDir: DefaultQuarantineDir,
			ManifestFile:  DefaultManifestFile,
		},
		Audio: AudioConfig{
			Channels:   DefaultChannels,
			SampleRate: DefaultSampleRate,
			BitDepth:   DefaultBitDepth,
		},
		Cleanup: CleanupConfig{Defragment: true, QuarantineRetention: DefaultQuarantineRetention},
	}
}
