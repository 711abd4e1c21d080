// Package repository persists the shared state record to a JSON file so a
// restarted bridge resumes where it left off.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/herobans/internal/domain/model"
)

// FileCache reads and writes the state record as indented JSON.
type FileCache struct {
	path     string
	fileMode fs.FileMode
	dirMode  fs.FileMode
}

// NewFileCache returns a cache rooted at path.
func NewFileCache(path string, opts ...Option) *FileCache {
	c := &FileCache{
		path:     strings.TrimSpace(path),
		fileMode: 0o644,
		dirMode:  0o755,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the cache file location.
func (c *FileCache) Path() string {
	return c.path
}

// Load decodes the cached document. A missing file yields an error matching
// fs.ErrNotExist.
func (c *FileCache) Load(ctx context.Context) (any, error) {
	if c.path == "" {
		return nil, ErrNoPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeCache, c.path, err)
	}
	return raw, nil
}

// Save writes s atomically: a sibling temp file is written then renamed
// over the target.
func (c *FileCache) Save(ctx context.Context, s model.State) error {
	if c.path == "" {
		return ErrNoPath
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), c.dirMode); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteCache, err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteCache, err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, c.fileMode); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteCache, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrWriteCache, err)
	}
	return nil
}
