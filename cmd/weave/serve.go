package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkpot/weave/internal/server"
	"github.com/inkpot/weave/internal/site"
)

var watch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the book and serve it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		renderer, c, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		if c != nil {
			defer c.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		builder := site.NewBuilder(cfg, renderer, log)
		if _, err := builder.Build(ctx); err != nil {
			return err
		}

		if watch {
			go func() {
				// Config is reloaded per rebuild, so edits to weave.yml
				// (chapter order, engines, cache) take effect live.
				err := server.Watch(ctx, cfg.SourceDir, cfgPath, cfg.WatchDebounce, log, func(ctx context.Context) {
					cur, err := loadConfig()
					if err != nil {
						log.Error("config reload failed", "error", err)
						return
					}
					r, rc, err := newRenderer(cur)
					if err != nil {
						log.Error("rebuild setup failed", "error", err)
						return
					}
					if rc != nil {
						defer rc.Close()
					}
					if _, err := site.NewBuilder(cur, r, log).Build(ctx); err != nil {
						log.Error("rebuild failed", "error", err)
					}
				})
				if err != nil {
					log.Error("watch stopped", "error", err)
				}
			}()
		}

		srv := server.NewServer(cfg, log)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("serving book", "port", cfg.Port, "dir", cfg.OutputDir, "watch", watch)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild when chapter sources change")
}
