package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/mediaedit/cmd"
	"github.com/tphakala/mediaedit/internal/buildinfo"
	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/telemetry"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	ctx := conf.NewContext(nil, buildinfo.NewContext(version, buildDate))

	// Ctrl-C cancels long operations such as cleanup between items
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer telemetry.Flush()
	defer func() {
		if err := logger.Global().Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "error flushing logs: %v\n", err)
		}
	}()

	rootCmd := cmd.RootCommand(ctx)
	if err := rootCmd.ExecuteContext(runCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
