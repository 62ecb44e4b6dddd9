package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "weave.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SourceDir != "chapters" || cfg.OutputDir != "site" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Workers <= 0 {
		t.Errorf("workers must default positive, got %d", cfg.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.yml")
	yml := `title: Field Notes
author: R. Harris
source: src
output: public
cache: true
cache_path: tmp/cache.db
workers: 2
chapters:
  - 01-intro.md
  - 02-data.md
engines:
  julia: [julia, --startup-file=no]
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Title != "Field Notes" || cfg.Author != "R. Harris" {
		t.Errorf("title/author not loaded: %+v", cfg)
	}
	if cfg.SourceDir != "src" || cfg.OutputDir != "public" {
		t.Errorf("dirs not loaded: %+v", cfg)
	}
	if !cfg.CacheEnabled || cfg.CachePath != "tmp/cache.db" {
		t.Errorf("cache settings not loaded: %+v", cfg)
	}
	if len(cfg.Chapters) != 2 || cfg.Chapters[0] != "01-intro.md" {
		t.Errorf("chapter order not loaded: %v", cfg.Chapters)
	}
	if argv := cfg.Engines["julia"]; len(argv) != 2 || argv[0] != "julia" {
		t.Errorf("engine argv not loaded: %v", argv)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WEAVE_TITLE", "Override")
	t.Setenv("WEAVE_WORKERS", "3")
	t.Setenv("WEAVE_WATCH_DEBOUNCE", "1s")

	cfg, err := Load(filepath.Join(t.TempDir(), "weave.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Title != "Override" {
		t.Errorf("env title not applied: %q", cfg.Title)
	}
	if cfg.Workers != 3 {
		t.Errorf("env workers not applied: %d", cfg.Workers)
	}
	if cfg.WatchDebounce != time.Second {
		t.Errorf("env debounce not applied: %v", cfg.WatchDebounce)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"empty source", func(c *Config) { c.SourceDir = "" }},
		{"empty output", func(c *Config) { c.OutputDir = "" }},
		{"cache without path", func(c *Config) { c.CacheEnabled = true; c.CachePath = "" }},
		{"empty engine argv", func(c *Config) { c.Engines = map[string][]string{"julia": {}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "weave.yml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.yml")
	if err := os.WriteFile(path, []byte("title: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}
