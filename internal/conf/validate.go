// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateProjectSettings(&settings.Project); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateAudioSettings(&settings.Audio); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateCleanupSettings(&settings.Cleanup); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLoggingSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateProjectSettings validates the project directory layout
func validateProjectSettings(settings *ProjectConfig) error {
	var errs []string

	if settings.DataDir == "" {
		errs = append(errs, "project data directory must not be empty")
	}

	switch q := settings.QuarantineDir; {
	case q == "":
		errs = append(errs, "project quarantine directory must not be empty")
	case filepath.IsAbs(q) || strings.Contains(filepath.ToSlash(q), "/") || q == "." || q == "..":
		errs = append(errs, fmt.Sprintf("project quarantine directory must be a plain subdirectory name, got %q", q))
	}

	if settings.ManifestFile == "" {
		errs = append(errs, "project manifest file must not be empty")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// validateAudioSettings validates the default PCM format
func validateAudioSettings(settings *AudioConfig) error {
	var errs []string

	if settings.Channels < 1 {
		errs = append(errs, fmt.Sprintf("audio channels must be at least 1, got %d", settings.Channels))
	}

	if settings.SampleRate < 1 {
		errs = append(errs, fmt.Sprintf("audio sample rate must be at least 1, got %d", settings.SampleRate))
	}

	if settings.BitDepth < 1 || settings.BitDepth%8 != 0 {
		errs = append(errs, fmt.Sprintf("audio bit depth must be a positive multiple of 8, got %d", settings.BitDepth))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// validateCleanupSettings validates the quarantine retention period
func validateCleanupSettings(settings *CleanupConfig) error {
	if _, err := ParseRetentionPeriod(settings.QuarantineRetention); err != nil {
		return fmt.Errorf("invalid cleanup quarantine retention: %w", err)
	}
	return nil
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// validateLoggingSettings validates log levels
func validateLoggingSettings(settings *Settings) error {
	cfg := &settings.Logging
	var errs []string

	check := func(name, level string) {
		if level != "" && !slices.Contains(validLogLevels, level) {
			errs = append(errs, fmt.Sprintf("invalid %s log level %q", name, level))
		}
	}

	check("default", cfg.DefaultLevel)
	if cfg.Console != nil {
		check("console", cfg.Console.Level)
	}
	if cfg.FileOutput != nil {
		check("file", cfg.FileOutput.Level)
		if cfg.FileOutput.Enabled && cfg.FileOutput.Path == "" {
			errs = append(errs, "log file path must be set when file output is enabled")
		}
	}
	for module, level := range cfg.ModuleLevels {
		check("module "+module, level)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// validateTelemetrySettings validates the Sentry settings
func validateTelemetrySettings(settings *TelemetryConfig) error {
	if settings.Enabled && settings.DSN == "" {
		return errors.New("telemetry DSN must be set when telemetry is enabled")
	}
	return nil
}
