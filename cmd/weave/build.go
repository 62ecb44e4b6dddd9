package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkpot/weave/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render every chapter into the output directory",
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
		report, err := builder.Build(ctx)
		if err != nil {
			return err
		}

		for _, ch := range report.Chapters {
			switch ch.Status {
			case site.StatusFailed:
				fmt.Fprintf(os.Stderr, "FAIL  %s: %s\n", ch.Path, ch.Error)
			case site.StatusPartial:
				fmt.Fprintf(os.Stderr, "WARN  %s: %d block(s) errored (shown inline)\n", ch.Path, ch.FailedBlocks)
			default:
				fmt.Fprintf(os.Stderr, "ok    %s -> %s.html\n", ch.Path, ch.Slug)
			}
		}
		if report.Failed() {
			return fmt.Errorf("build finished with failed chapters")
		}
		return nil
	},
}
