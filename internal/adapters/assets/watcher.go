package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/herobans/pkg/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Reloader re-reads a data file, e.g. the hero catalog.
type Reloader interface {
	Reload(ctx context.Context) error
	Path() string
}

// Watcher follows the fonts tree and the heroes file. Bursts of events are
// coalesced: a reload runs once the tree has been quiet for the debounce
// interval.
type Watcher struct {
	fonts    *FontIndex
	heroes   Reloader
	debounce time.Duration
	logger   logger.Logger
	onReload func(kind string)

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// WatchOption applies a configuration option to the Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before reloading.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l logger.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReloadHook is called after each reload with "fonts" or "heroes".
func WithReloadHook(fn func(kind string)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher builds a watcher; either target may be nil.
func NewWatcher(fonts *FontIndex, heroes Reloader, opts ...WatchOption) *Watcher {
	w := &Watcher{
		fonts:    fonts,
		heroes:   heroes,
		debounce: defaultDebounce,
		logger:   logger.Nop(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start registers watches and begins the event loop. Missing directories are
// skipped; they are not created.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	if w.fonts != nil {
		// An unwatched index keeps rescanning on every List.
		if err := w.addTree(w.fonts.Dir()); err != nil {
			w.logger.Debug(ctx, "fonts directory not watched", logger.String("dir", w.fonts.Dir()), logger.Error(err))
		} else {
			w.fonts.setCached(true)
		}
	}
	if w.heroes != nil && w.heroes.Path() != "" {
		dir := filepath.Dir(w.heroes.Path())
		if err := fsw.Add(dir); err != nil {
			w.logger.Debug(ctx, "heroes directory not watched", logger.String("dir", dir), logger.Error(err))
		}
	}

	w.logger.Info(ctx, "asset watcher started", logger.Int("watches", len(fsw.WatchList())))
	go w.loop(ctx)
	return nil
}

// Stop ends the loop and releases the watches.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		if w.fsw != nil {
			_ = w.fsw.Close()
			<-w.done
		}
		if w.fonts != nil {
			w.fonts.setCached(false)
		}
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var (
		fontsDirty, heroesDirty bool
		lastEvent               time.Time
	)
	ticker := time.NewTicker(max(w.debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			switch {
			case w.isHeroesFile(event.Name):
				heroesDirty = true
			case w.inFonts(event.Name):
				fontsDirty = true
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.addTree(event.Name)
					}
				}
			default:
				continue
			}
			lastEvent = time.Now()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "asset watcher error", logger.Error(err))

		case <-ticker.C:
			if (!fontsDirty && !heroesDirty) || time.Since(lastEvent) < w.debounce {
				continue
			}
			if fontsDirty {
				fontsDirty = false
				w.fonts.Invalidate()
				w.logger.Debug(ctx, "font index invalidated", logger.String("dir", w.fonts.Dir()))
				w.notify("fonts")
			}
			if heroesDirty {
				heroesDirty = false
				if err := w.heroes.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
					w.logger.Warn(ctx, "hero catalog reload failed", logger.Error(err))
				}
				w.notify("heroes")
			}
		}
	}
}

func (w *Watcher) notify(kind string) {
	if w.onReload != nil {
		w.onReload(kind)
	}
}

func (w *Watcher) isHeroesFile(name string) bool {
	if w.heroes == nil || w.heroes.Path() == "" {
		return false
	}
	return filepath.Clean(name) == filepath.Clean(w.heroes.Path())
}

func (w *Watcher) inFonts(name string) bool {
	if w.fonts == nil {
		return false
	}
	dir := filepath.Clean(w.fonts.Dir())
	name = filepath.Clean(name)
	return name == dir || strings.HasPrefix(name, dir+string(filepath.Separator))
}
