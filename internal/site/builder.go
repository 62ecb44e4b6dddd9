// Package site builds a whole book: it discovers chapter sources, renders
// them through the chapter renderer, and writes pages, figures and the
// index. Parallelism is across chapters only; inside a chapter evaluation
// stays strictly sequential.
package site

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inkpot/weave/internal/config"
	"github.com/inkpot/weave/internal/parser"
	"github.com/inkpot/weave/internal/render"
)

// Builder renders a configured book into its output directory.
type Builder struct {
	cfg      config.Config
	renderer *render.Renderer
	log      *slog.Logger
}

func NewBuilder(cfg config.Config, renderer *render.Renderer, log *slog.Logger) *Builder {
	return &Builder{cfg: cfg, renderer: renderer, log: log}
}

// DiscoverChapters returns chapter source paths in book order: the
// configured list when present, otherwise every chapter file in the
// source dir sorted by name.
func (b *Builder) DiscoverChapters() ([]string, error) {
	if len(b.cfg.Chapters) > 0 {
		paths := make([]string, 0, len(b.cfg.Chapters))
		for _, name := range b.cfg.Chapters {
			paths = append(paths, filepath.Join(b.cfg.SourceDir, name))
		}
		return paths, nil
	}

	entries, err := os.ReadDir(b.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && parser.IsChapterFile(e.Name()) {
			paths = append(paths, filepath.Join(b.cfg.SourceDir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Build renders every chapter and writes the site. The returned report
// always covers all chapters; a chapter that fails to render is reported
// and skipped, it never aborts the rest of the book.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := newReport()
	log := b.log.With("build_id", report.BuildID)

	paths, err := b.DiscoverChapters()
	if err != nil {
		return report, err
	}
	if len(paths) == 0 {
		return report, fmt.Errorf("no chapters found in %s", b.cfg.SourceDir)
	}

	figDir := filepath.Join(b.cfg.OutputDir, "figures")
	if err := os.MkdirAll(figDir, 0o755); err != nil {
		return report, fmt.Errorf("create output dir: %w", err)
	}

	log.Info("build started", "chapters", len(paths), "workers", b.cfg.Workers)

	results := make([]renderedChapter, len(paths))

	var wg sync.WaitGroup
	sem := make(chan struct{}, b.cfg.Workers)
	for i, path := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			ch, cr := b.buildChapter(ctx, path, figDir)
			results[i] = renderedChapter{idx: i, chapter: ch, report: cr}
		}(i, path)
	}
	wg.Wait()

	// Pages are written after all rendering so prev/next links can carry
	// real chapter titles.
	var ok []renderedChapter
	for _, res := range results {
		report.Chapters = append(report.Chapters, res.report)
		if res.chapter != nil {
			ok = append(ok, res)
		}
	}

	for i, res := range ok {
		var prev, next *render.NavLink
		if i > 0 {
			prev = &render.NavLink{Title: ok[i-1].chapter.Title, Href: ok[i-1].chapter.Slug + ".html"}
		}
		if i < len(ok)-1 {
			next = &render.NavLink{Title: ok[i+1].chapter.Title, Href: ok[i+1].chapter.Slug + ".html"}
		}
		page, err := render.RenderPage(render.PageData{
			BookTitle: b.cfg.Title,
			Author:    b.cfg.Author,
			Title:     res.chapter.Title,
			Body:      template.HTML(res.chapter.Body),
			Prev:      prev,
			Next:      next,
		})
		if err != nil {
			report.Chapters[res.idx].Status = StatusFailed
			report.Chapters[res.idx].Error = err.Error()
			continue
		}
		out := filepath.Join(b.cfg.OutputDir, res.chapter.Slug+".html")
		if err := os.WriteFile(out, page, 0o644); err != nil {
			report.Chapters[res.idx].Status = StatusFailed
			report.Chapters[res.idx].Error = err.Error()
		}
	}

	if err := b.writeIndex(ok); err != nil {
		return report, err
	}

	report.Duration = time.Since(report.Started)
	log.Info("build finished",
		"duration_ms", report.Duration.Milliseconds(),
		"failed_blocks", report.FailedBlocks(),
		"failed_chapters", countFailed(report),
	)
	return report, nil
}

// buildChapter parses and renders one source file.
func (b *Builder) buildChapter(ctx context.Context, path, figDir string) (*render.Chapter, ChapterReport) {
	start := time.Now()
	slug := ChapterSlug(path)
	cr := ChapterReport{Path: path, Slug: slug}

	doc, err := parser.Parse(path)
	if err != nil {
		cr.Status = StatusFailed
		cr.Error = err.Error()
		cr.Duration = time.Since(start)
		return nil, cr
	}

	ch, err := b.renderer.Render(ctx, doc, render.Options{
		Slug:      slug,
		FigureDir: figDir,
		FigureRef: "figures/",
	})
	cr.Duration = time.Since(start)
	if err != nil {
		cr.Status = StatusFailed
		cr.Error = err.Error()
		return nil, cr
	}

	cr.Title = ch.Title
	cr.FailedBlocks = ch.FailedBlocks
	if ch.FailedBlocks > 0 {
		cr.Status = StatusPartial
	} else {
		cr.Status = StatusRendered
	}
	return ch, cr
}

type renderedChapter struct {
	idx     int
	chapter *render.Chapter
	report  ChapterReport
}

func (b *Builder) writeIndex(ok []renderedChapter) error {
	data := render.IndexData{BookTitle: b.cfg.Title, Author: b.cfg.Author}
	for _, res := range ok {
		data.Chapters = append(data.Chapters, render.IndexEntry{
			Title:    res.chapter.Title,
			Href:     res.chapter.Slug + ".html",
			Headings: res.chapter.Headings,
		})
	}
	page, err := render.RenderIndex(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.cfg.OutputDir, "index.html"), page, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func countFailed(r *Report) int {
	n := 0
	for _, ch := range r.Chapters {
		if ch.Status == StatusFailed {
			n++
		}
	}
	return n
}

// ChapterSlug derives the page slug from a chapter source path.
func ChapterSlug(path string) string {
	base := filepath.Base(path)
	return render.Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
}
