package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tphakala/remoteaudio/cmd"
	"github.com/tphakala/remoteaudio/internal/buildinfo"
	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// build-time variables, set with -ldflags "-X main.version=..."
var (
	version   = ""
	buildDate = ""
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	info := &buildinfo.Context{Version: version, BuildDate: buildDate}

	if err := errors.InitSentry(settings.Telemetry.SentryDSN, info.GetVersion()); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
	}
	defer errors.FlushSentry(sentryFlushTimeout)
	defer func() { _ = logger.Global().Close() }()

	if err := cmd.RootCommand(settings, info).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
