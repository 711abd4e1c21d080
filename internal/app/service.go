// Package service wires the shared state, hero catalog, and font index into
// the dependencies required by the HTTP API and the control panel.
package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/herobans/internal/adapters/assets"
	repository "github.com/okian/herobans/internal/adapters/repository"
	"github.com/okian/herobans/internal/domain/catalog"
	"github.com/okian/herobans/internal/domain/model"
	"github.com/okian/herobans/internal/domain/state"
	"github.com/okian/herobans/pkg/logger"
)

// Service implements the API dependencies for the bridge.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *state.Store
	heroes  *catalog.Catalog
	fonts   *assets.FontIndex
	watcher *assets.Watcher

	// Configuration
	webRoot        string
	fontsDir       string
	heroesPath     string
	cachePath      string
	maxSuggestions int
	watchAssets    bool
	debounce       time.Duration
	clock          func() time.Time

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWebRoot sets the directory fonts and hero images are resolved against.
func WithWebRoot(root string) Option {
	return func(s *Service) {
		if root != "" {
			s.webRoot = root
		}
	}
}

// WithFontsDir sets the fonts directory, relative to the web root.
func WithFontsDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.fontsDir = dir
		}
	}
}

// WithHeroesPath sets the hero catalog file, relative to the web root.
func WithHeroesPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.heroesPath = path
		}
	}
}

// WithStateCachePath sets the state cache file. An empty path disables it.
func WithStateCachePath(path string) Option {
	return func(s *Service) {
		s.cachePath = path
	}
}

// WithMaxSuggestions sets the autocomplete cap used when callers pass none.
func WithMaxSuggestions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithWatchAssets toggles reloading heroes and fonts on file changes.
func WithWatchAssets(on bool) Option {
	return func(s *Service) {
		s.watchAssets = on
	}
}

// WithWatchDebounce sets the quiet period the asset watcher waits for.
func WithWatchDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithClock sets the time source for updatedAt stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		webRoot:        ".",
		fontsDir:       filepath.Join("assets", "Fonts"),
		heroesPath:     filepath.Join("data", "heroes.json"),
		cachePath:      filepath.Join("data", "controller_state_cache.json"),
		maxSuggestions: catalog.DefaultSuggestions,
		watchAssets:    true,
		clock:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the cached state and the hero catalog, and starts the asset
// watcher. Asset problems are logged, never fatal. Calling Start on a
// running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting bridge service...")

	storeOpts := []state.Option{
		state.WithClock(s.clock),
		state.WithLogger(s.logger),
	}
	if s.cachePath != "" {
		storeOpts = append(storeOpts, state.WithCache(repository.NewFileCache(s.cachePath)))
	}
	s.store = state.NewStore(ctx, storeOpts...)

	s.heroes = catalog.New(s.resolveHeroesPath(), catalog.WithRoot(s.webRoot), catalog.WithLogger(s.logger))
	_ = s.heroes.Reload(ctx)

	s.fonts = assets.NewFontIndex(s.webRoot, s.fontsDir)

	if s.watchAssets {
		watchOpts := []assets.WatchOption{assets.WithWatchLogger(s.logger)}
		if s.debounce > 0 {
			watchOpts = append(watchOpts, assets.WithDebounce(s.debounce))
		}
		w := assets.NewWatcher(s.fonts, s.heroes, watchOpts...)
		if err := w.Start(ctx); err != nil {
			s.logger.Warn(ctx, "asset watcher disabled", logger.Error(err))
		} else {
			s.watcher = w
		}
	}

	s.started = true
	s.startedAt = s.clock()
	s.logger.Info(ctx, "bridge service started",
		logger.String("webRoot", s.webRoot),
		logger.String("stateCache", s.cachePath),
		logger.Int("heroes", s.heroes.Len()),
		logger.Bool("watchAssets", s.watcher != nil),
	)

	return nil
}

// Stop releases the watcher and disconnects live subscribers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping bridge service...")

	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	s.store.Close()

	s.started = false
	s.logger.Info(context.Background(), "bridge service stopped")
}

// GetState returns the current shared record.
func (s *Service) GetState(ctx context.Context) model.State {
	return s.store.Get(ctx)
}

// SetState sanitizes payload and replaces the shared record with it.
func (s *Service) SetState(ctx context.Context, payload any) model.State {
	return s.store.Set(ctx, payload)
}

// Subscribe follows state changes. See state.Store.Subscribe.
func (s *Service) Subscribe(buffer int) (<-chan model.State, func()) {
	return s.store.Subscribe(buffer)
}

// Fonts lists selectable font files.
func (s *Service) Fonts(ctx context.Context) ([]assets.Font, error) {
	return s.fonts.List(ctx)
}

// SuggestHeroes returns catalog heroes matching term. A limit <= 0 uses the
// configured cap.
func (s *Service) SuggestHeroes(term string, limit int) []catalog.Hero {
	if limit <= 0 {
		limit = s.maxSuggestions
	}
	return s.heroes.Suggest(term, limit)
}

// Catalog returns the hero catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.heroes
}

// resolveHeroesPath reads the catalog from the same file overlays fetch
// from the web root.
func (s *Service) resolveHeroesPath() string {
	if filepath.IsAbs(s.heroesPath) {
		return s.heroesPath
	}
	return filepath.Join(s.webRoot, s.heroesPath)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"webRoot":        s.webRoot,
		"stateCache":     s.cachePath,
		"maxSuggestions": s.maxSuggestions,
		"watchAssets":    s.watcher != nil,
	}

	if s.started {
		stats["uptimeSeconds"] = int64(s.clock().Sub(s.startedAt).Seconds())
		stats["heroes"] = s.heroes.Len()
		stats["subscribers"] = s.store.Subscribers()
		stats["updatedAt"] = s.store.Get(context.Background()).UpdatedAt
	}

	return stats
}
