package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one book. Values come from weave.yml with WEAVE_*
// environment overrides on top.
type Config struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`

	// Layout
	SourceDir string `yaml:"source"` // Literate chapter sources
	OutputDir string `yaml:"output"` // Rendered site

	// Explicit chapter order; empty means every *.md in SourceDir,
	// sorted by name.
	Chapters []string `yaml:"chapters"`

	// Extra evaluation engines: language tag -> interpreter argv.
	Engines map[string][]string `yaml:"engines"`

	// Block cache
	CacheEnabled bool   `yaml:"cache"`
	CachePath    string `yaml:"cache_path"`

	// Build
	Workers int `yaml:"workers"` // Parallel chapter builds; documents stay sequential inside

	// Preview server
	Port string `yaml:"port"`

	// Watch rebuild debounce; set via WEAVE_WATCH_DEBOUNCE.
	WatchDebounce time.Duration `yaml:"-"`
}

// Load reads weave.yml at path (missing file means defaults) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{
		Title:         "Untitled Book",
		SourceDir:     "chapters",
		OutputDir:     "site",
		CachePath:     ".weave/cache.db",
		Workers:       runtime.NumCPU(),
		Port:          "8080",
		WatchDebounce: 300 * time.Millisecond,
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.Title = envOr("WEAVE_TITLE", cfg.Title)
	cfg.SourceDir = envOr("WEAVE_SOURCE", cfg.SourceDir)
	cfg.OutputDir = envOr("WEAVE_OUTPUT", cfg.OutputDir)
	cfg.CachePath = envOr("WEAVE_CACHE_PATH", cfg.CachePath)
	cfg.CacheEnabled = envBool("WEAVE_CACHE", cfg.CacheEnabled)
	cfg.Workers = envInt("WEAVE_WORKERS", cfg.Workers)
	cfg.Port = envOr("WEAVE_PORT", cfg.Port)
	cfg.WatchDebounce = envDuration("WEAVE_WATCH_DEBOUNCE", cfg.WatchDebounce)

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 300 * time.Millisecond
	}

	return cfg, nil
}

// Validate checks the parts that would otherwise fail deep inside a build.
func (c Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir is required")
	}
	if c.CacheEnabled && c.CachePath == "" {
		return fmt.Errorf("cache_path is required when cache is enabled")
	}
	for lang, argv := range c.Engines {
		if len(argv) == 0 {
			return fmt.Errorf("engine %q has an empty command", lang)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
