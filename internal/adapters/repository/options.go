package repository

import "io/fs"

// Option applies a configuration option to the FileCache.
type Option func(*FileCache)

// WithFileMode sets the permission bits of the cache file.
func WithFileMode(mode fs.FileMode) Option {
	return func(c *FileCache) {
		if mode != 0 {
			c.fileMode = mode
		}
	}
}

// WithDirMode sets the permission bits used when creating parent directories.
func WithDirMode(mode fs.FileMode) Option {
	return func(c *FileCache) {
		if mode != 0 {
			c.dirMode = mode
		}
	}
}
