// Package config defines bridge configuration and how it is loaded.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers files and environment on top of New().
// - External errors are wrapped with this package's sentinel kinds.
package config

import "fmt"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, receives a rotated copy of the log.
	LogFile string `koanf:"log_file"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address.
	Addr string `koanf:"addr"`

	// WebRoot is the directory served as static files.
	WebRoot string `koanf:"web_root"`

	// FontsDir is scanned for font files, relative to WebRoot.
	FontsDir string `koanf:"fonts_dir"`

	// HeroesPath points at the hero catalog JSON, relative to WebRoot.
	HeroesPath string `koanf:"heroes_path"`

	// StateCachePath is where the shared record is persisted. Empty disables it.
	StateCachePath string `koanf:"state_cache_path"`

	// MaxSuggestions caps autocomplete lists.
	MaxSuggestions int `koanf:"max_suggestions"`

	// MaxBodyBytes caps POST bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// WatchAssets reloads heroes and fonts when files change.
	WatchAssets bool `koanf:"watch_assets"`

	// Control runs the terminal control panel next to the server.
	Control bool `koanf:"control"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           "127.0.0.1:8765",
		WebRoot:        ".",
		FontsDir:       "assets/Fonts",
		HeroesPath:     "data/heroes.json",
		StateCachePath: "data/controller_state_cache.json",
		MaxSuggestions: 12,
		MaxBodyBytes:   1 << 20,
		WatchAssets:    true,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxSuggestions <= 0:
		return fmt.Errorf("%w: max_suggestions must be positive", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	return nil
}
