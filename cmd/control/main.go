package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/herobans/internal/client"
	"github.com/okian/herobans/internal/control"
	"github.com/okian/herobans/pkg/logger"
)

const (
	defaultURL     = "http://127.0.0.1:8765"
	defaultTimeout = client.DefaultTimeout
	defaultLogFile = "logs/control.log"
)

func main() {
	var (
		baseURL = flag.String("url", defaultURL, "Base URL of a running bridge")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile = flag.String("log", defaultLogFile, "Log file; the terminal belongs to the panel")
		limit   = flag.Int("suggestions", 0, "Autocomplete list size (0 uses the bridge default)")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithoutStdout(), logger.WithFile(*logFile)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Get()

	cl, err := client.New(*baseURL, client.WithTimeout(*timeout))
	if err != nil {
		os.Stderr.WriteString("invalid bridge url: " + err.Error() + "\n")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "control panel starting", logger.String("url", *baseURL), logger.String("timeout", timeout.String()))

	ctrl := control.New(cl, control.HeroFunc(cl.Heroes))
	err = control.Run(ctx, ctrl,
		control.WithOverlayBase(*baseURL),
		control.WithSuggestionLimit(*limit),
		control.WithOpTimeout(*timeout+time.Second),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "control panel failed", logger.Error(err))
		os.Stderr.WriteString(err.Error() + "\n")
		return
	}
	log.Info(ctx, "control panel closed")
}
