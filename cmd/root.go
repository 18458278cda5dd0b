package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/mediaedit/cmd/add"
	"github.com/tphakala/mediaedit/cmd/concat"
	"github.com/tphakala/mediaedit/cmd/gc"
	"github.com/tphakala/mediaedit/cmd/inspect"
	"github.com/tphakala/mediaedit/cmd/project"
	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/telemetry"
)

// annotationProjectDir marks commands whose first argument is a project
// directory; its settings file is loaded when --config is not given.
const annotationProjectDir = "mediaedit/project-dir"

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "mediaedit",
		Short:         "Edit and maintain multimedia presentation projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, &configPath)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(ctx.Out, "mediaedit %s (built %s)\n",
				ctx.BuildInfo.GetVersion(), ctx.BuildInfo.GetBuildDate())
			return err
		},
	}

	projectCmds := []*cobra.Command{project.Command(ctx), add.Command(ctx), gc.Command(ctx)}
	for _, c := range projectCmds {
		c.Annotations = map[string]string{annotationProjectDir: "true"}
	}

	rootCmd.AddCommand(projectCmds...)
	rootCmd.AddCommand(
		inspect.Command(ctx),
		concat.Command(ctx),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		path := configPath
		if path == "" && cmd.Annotations[annotationProjectDir] != "" && len(args) > 0 {
			path = conf.ConfigPath(args[0])
		}
		settings, err := conf.LoadWithFlags(ctx.Fs, path, cmd.Flags())
		if err != nil {
			return err
		}
		ctx.Settings = settings
		return initialize(ctx)
	}

	return rootCmd
}

// initialize sets up logging and telemetry once settings are loaded.
func initialize(ctx *conf.Context) error {
	if ctx.Settings.Debug {
		ctx.Settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if ctx.Settings.Logging.Console != nil {
			ctx.Settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	cl, err := logger.NewCentralLogger(&ctx.Settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)

	if err := telemetry.Init(ctx.Settings, ctx.BuildInfo.GetVersion(), nil); err != nil {
		logger.Global().Module("main").Warn("telemetry disabled", logger.Error(err))
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configPath *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configPath, "config", "c", "", "Path to the settings file (default: the project's "+conf.ConfigFileName+")")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("datadir", conf.DefaultDataDir, "Data directory, relative to the project directory")
	flags.String("manifest", conf.DefaultManifestFile, "Manifest file, relative to the project directory")
	flags.Bool("defragment", true, "Defragment audio during cleanup")
	flags.String("retention", conf.DefaultQuarantineRetention, "Purge quarantined files older than this (e.g. 30d, 2w, 0 to keep)")
	flags.String("log-level", "info", "Default log level")
}
