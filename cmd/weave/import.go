package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkpot/weave/internal/parser"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Convert legacy manuscripts (docx, pdf, html, txt, csv) into chapters",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.SourceDir, 0o755); err != nil {
			return fmt.Errorf("create source dir: %w", err)
		}

		for _, path := range args {
			name := filepath.Base(path)
			imp, err := parser.ImporterFor(name)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open manuscript: %w", err)
			}
			md, err := imp.Import(f, name)
			f.Close()
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}

			out := filepath.Join(cfg.SourceDir, strings.TrimSuffix(name, filepath.Ext(name))+".md")
			if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write chapter: %w", err)
			}
			log.Info("imported manuscript", "from", path, "to", out)
		}
		return nil
	},
}
