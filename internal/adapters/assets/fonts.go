// Package assets indexes files served to overlays (fonts) and watches the
// asset tree so indexes and the hero catalog follow edits on disk.
package assets

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/okian/herobans/pkg/metrics"
)

// fallbackFontLabel names fonts whose file stem humanizes to nothing.
const fallbackFontLabel = "Custom Font"

var fontExtensions = map[string]bool{
	".ttf":   true,
	".otf":   true,
	".woff":  true,
	".woff2": true,
}

// Font is one selectable font file. Path is slash separated and relative to
// the web root; ID is "file:" + Path.
type Font struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Label string `json:"label"`
}

// FontIndex lists font files under a directory of the web root. Results are
// cached only while a watcher keeps them fresh; otherwise every List rescans.
type FontIndex struct {
	root string
	dir  string

	mu     sync.Mutex
	fonts  []Font
	fresh  bool
	cached bool
}

// NewFontIndex indexes dir, resolved against root when relative.
func NewFontIndex(root, dir string) *FontIndex {
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return &FontIndex{root: root, dir: dir}
}

// Dir returns the scanned directory.
func (i *FontIndex) Dir() string {
	return i.dir
}

// List returns fonts sorted by path. A missing directory yields an empty list.
func (i *FontIndex) List(ctx context.Context) ([]Font, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cached && i.fresh {
		return copyFonts(i.fonts), nil
	}
	fonts, err := i.scan(ctx)
	if err != nil {
		metrics.RecordAssetReload("fonts", "error")
		return nil, err
	}
	i.fonts, i.fresh = fonts, true
	metrics.UpdateFontsTotal(len(fonts))
	return copyFonts(fonts), nil
}

func copyFonts(fonts []Font) []Font {
	out := make([]Font, len(fonts))
	copy(out, fonts)
	return out
}

// Invalidate forces the next List to rescan.
func (i *FontIndex) Invalidate() {
	i.mu.Lock()
	i.fresh = false
	i.mu.Unlock()
}

func (i *FontIndex) setCached(on bool) {
	i.mu.Lock()
	i.cached = on
	i.fresh = false
	i.mu.Unlock()
}

// scan walks the directory tree. WalkDir visits entries in lexical order per
// directory, which sorts paths component by component.
func (i *FontIndex) scan(ctx context.Context) ([]Font, error) {
	fonts := []Font{}
	err := filepath.WalkDir(i.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == i.dir {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !fontExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(i.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		fonts = append(fonts, Font{ID: "file:" + rel, Path: rel, Label: HumanizeFontName(p)})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []Font{}, nil
	}
	if err != nil {
		return nil, err
	}
	return fonts, nil
}

// HumanizeFontName turns "Big_Shoulders-Bold.ttf" into "Big Shoulders Bold".
func HumanizeFontName(p string) string {
	base := filepath.Base(p)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	label := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	if label == "" {
		return fallbackFontLabel
	}
	return label
}
