// Package catalog holds the list of selectable heroes and the autocomplete
// used by control surfaces.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/okian/herobans/pkg/logger"
	"github.com/okian/herobans/pkg/metrics"
)

// DefaultSuggestions caps autocomplete results when no limit is given.
const DefaultSuggestions = 12

// ErrDecode reports a heroes file that is not valid JSON.
var ErrDecode = errors.New("heroes file decode failed")

// Hero is one selectable entry. Image is a web-root relative path, empty
// when the file does not exist.
type Hero struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type heroesFile struct {
	Heroes []struct {
		Name  any `json:"name"`
		Image any `json:"image"`
	} `json:"heroes"`
}

// Catalog is a reloadable, concurrency-safe hero list.
type Catalog struct {
	mu     sync.RWMutex
	heroes []Hero
	names  map[string]struct{}

	path   string
	root   string
	logger logger.Logger
}

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithRoot sets the directory hero images are resolved against.
func WithRoot(root string) Option {
	return func(c *Catalog) {
		if root != "" {
			c.root = root
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns an empty catalog backed by the heroes file at path.
// Call Reload to read it.
func New(path string, opts ...Option) *Catalog {
	c := &Catalog{
		path:   path,
		root:   ".",
		names:  map[string]struct{}{},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromHeroes builds a fixed catalog. Entries with blank names are skipped.
func FromHeroes(heroes ...Hero) *Catalog {
	c := New("")
	c.replace(heroes)
	return c
}

// Path returns the heroes file location.
func (c *Catalog) Path() string {
	return c.path
}

// Reload re-reads the heroes file. A missing file empties the catalog; a
// broken one keeps the previous list and returns the error.
func (c *Catalog) Reload(ctx context.Context) error {
	heroes, err := c.read()
	if err != nil {
		metrics.RecordAssetReload("heroes", "error")
		c.logger.Warn(ctx, "hero catalog reload failed; keeping previous list",
			logger.String("path", c.path), logger.Error(err))
		return err
	}
	c.replace(heroes)
	metrics.RecordAssetReload("heroes", "ok")
	metrics.UpdateHeroesTotal(len(heroes))
	c.logger.Info(ctx, "hero catalog loaded", logger.String("path", c.path), logger.Int("heroes", len(heroes)))
	return nil
}

func (c *Catalog) read() ([]Hero, error) {
	if c.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc heroesFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, c.path, err)
	}

	heroes := make([]Hero, 0, len(doc.Heroes))
	for _, entry := range doc.Heroes {
		name := strings.TrimSpace(text(entry.Name))
		if name == "" {
			continue
		}
		heroes = append(heroes, Hero{Name: name, Image: c.resolveImage(text(entry.Image))})
	}
	return heroes, nil
}

// resolveImage maps "../heroes/ana.png" to "assets/heroes/ana.png" when the
// file exists under the root.
func (c *Catalog) resolveImage(image string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(image), "../", "")
	if cleaned == "" {
		return ""
	}
	rel := path.Join("assets", filepath.ToSlash(cleaned))
	if _, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(rel))); err != nil {
		return ""
	}
	return rel
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func (c *Catalog) replace(heroes []Hero) {
	kept := make([]Hero, 0, len(heroes))
	names := make(map[string]struct{}, len(heroes))
	for _, h := range heroes {
		h.Name = strings.TrimSpace(h.Name)
		if h.Name == "" {
			continue
		}
		kept = append(kept, h)
		names[h.Name] = struct{}{}
	}

	c.mu.Lock()
	c.heroes = kept
	c.names = names
	c.mu.Unlock()
}

// Heroes returns a copy of the list in file order.
func (c *Catalog) Heroes() []Hero {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Hero, len(c.heroes))
	copy(out, c.heroes)
	return out
}

// Len returns the number of heroes.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.heroes)
}

// Contains reports whether name, trimmed, is exactly a known hero.
func (c *Catalog) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.names[strings.TrimSpace(name)]
	return ok
}

// Lookup returns the hero with the given name.
func (c *Catalog) Lookup(name string) (Hero, bool) {
	name = strings.TrimSpace(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.names[name]; !ok {
		return Hero{}, false
	}
	for _, h := range c.heroes {
		if h.Name == name {
			return h, true
		}
	}
	return Hero{}, false
}

// Suggest runs Filter over the current list.
func (c *Catalog) Suggest(term string, limit int) []Hero {
	metrics.RecordSuggestQuery()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Filter(c.heroes, term, limit)
}
