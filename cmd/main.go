package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/herobans/internal/adapters/http/api"
	"github.com/okian/herobans/internal/adapters/http/site"
	"github.com/okian/herobans/internal/adapters/http/swagger"
	app "github.com/okian/herobans/internal/app"
	"github.com/okian/herobans/internal/config"
	"github.com/okian/herobans/internal/control"
	"github.com/okian/herobans/pkg/logger"
	"github.com/okian/herobans/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> .env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logOptions(cfg)...); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := site.CheckRoot(cfg.WebRoot); err != nil {
		loggerInstance.Warn(ctx, "web root is not usable; only the API will answer", logger.Error(err))
	}

	svc := newService(cfg, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// A busy port leaves the control panel usable against the in-process store.
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.String("addr", cfg.Addr), logger.Error(err))
		}
	}()

	if cfg.Control {
		runControl(ctx, stop, cfg, svc, loggerInstance)
	}

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// logOptions maps configuration onto logger options. The control panel owns
// the terminal, so log lines go to the file only while it runs.
func logOptions(cfg *config.Config) []logger.Option {
	opts := []logger.Option{
		logger.WithFormat(cfg.LogFormat),
		logger.WithFile(cfg.LogFile),
	}
	if cfg.Control {
		opts = append(opts, logger.WithoutStdout())
	}
	return opts
}

func newService(cfg *config.Config, l logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(l),
		app.WithWebRoot(cfg.WebRoot),
		app.WithFontsDir(cfg.FontsDir),
		app.WithHeroesPath(cfg.HeroesPath),
		app.WithStateCachePath(cfg.StateCachePath),
		app.WithMaxSuggestions(cfg.MaxSuggestions),
		app.WithWatchAssets(cfg.WatchAssets),
	)
}

// newHandler builds the full route table behind the bridge-wide policy.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) http.Handler {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithMaxSuggestions(cfg.MaxSuggestions),
		api.WithLogger(l),
	)
	apiServer.Register(ctx, mux)

	site.Register(ctx, mux, cfg.WebRoot)

	return api.Wrap(mux, l)
}

// runControl blocks on the terminal control panel and cancels the process
// when it exits.
func runControl(ctx context.Context, stop context.CancelFunc, cfg *config.Config, svc *app.Service, l logger.Logger) {
	defer stop()

	ctrl := control.New(control.Local(svc), control.FromCatalog(svc.Catalog()))
	err := control.Run(ctx, ctrl,
		control.WithOverlayBase(overlayBase(cfg.Addr)),
		control.WithSuggestionLimit(cfg.MaxSuggestions),
		control.WithSyncOnStart(true),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error(ctx, "control panel failed", logger.Error(err))
	}
}

// overlayBase turns a listen address into the URL shown for overlay pages.
func overlayBase(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics copies service gauges from GetStats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if heroes, ok := stats["heroes"].(int); ok {
		metrics.UpdateHeroesTotal(heroes)
	}

	if subscribers, ok := stats["subscribers"].(int); ok {
		metrics.UpdateLiveSubscribers(subscribers)
	}
}
