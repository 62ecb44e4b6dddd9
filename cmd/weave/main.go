package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkpot/weave/internal/cache"
	"github.com/inkpot/weave/internal/config"
	"github.com/inkpot/weave/internal/engine"
	"github.com/inkpot/weave/internal/render"
)

var (
	cfgPath string
	verbose bool

	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "weave renders literate manuscripts into a static HTML book",
	Long: `weave builds a book of literate markdown chapters: prose mixed with
executable code blocks. Blocks run against a persistent per-chapter
session, their output is woven back into the prose in source order, and
each chapter becomes one HTML page.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "weave.yml", "book configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(buildCmd, serveCmd, importCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		if log == nil {
			log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
		}
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the book configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newRenderer assembles the chapter renderer for a config. The returned
// cache is nil when caching is disabled; the caller owns closing it.
func newRenderer(cfg config.Config) (*render.Renderer, *cache.Cache, error) {
	var c *cache.Cache
	if cfg.CacheEnabled {
		var err error
		c, err = cache.Open(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
	}
	engines := engine.DefaultRegistry(cfg.Engines)
	return render.New(engines, c, log), c, nil
}
