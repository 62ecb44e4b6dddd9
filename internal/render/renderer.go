// Package render implements the chapter renderer: it executes a literate
// document's code blocks in order against per-language sessions, weaves
// the captured output back into the prose stream, and converts the woven
// markdown to an HTML page.
package render

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/inkpot/weave/internal/cache"
	"github.com/inkpot/weave/internal/document"
	"github.com/inkpot/weave/internal/engine"
)

// Renderer turns parsed documents into chapter pages. Safe for concurrent
// use across documents; each Render call owns its own sessions.
type Renderer struct {
	engines *engine.Registry
	cache   *cache.Cache // nil disables block caching
	log     *slog.Logger
}

func New(engines *engine.Registry, c *cache.Cache, log *slog.Logger) *Renderer {
	return &Renderer{engines: engines, cache: c, log: log}
}

// Chapter is one rendered page plus what the site builder needs from it.
type Chapter struct {
	Doc          *document.Document
	Slug         string
	Title        string
	Body         []byte     // Woven body HTML, before page templating
	Headings     []Heading  // For the chapter TOC and the index page
	Results      []*document.Result
	FailedBlocks int
}

// Options configures a single Render call.
type Options struct {
	Slug      string // Chapter slug; figure paths and page name derive from it
	FigureDir string // Directory where this chapter's figures are written
	FigureRef string // Relative URL prefix for figures in the page
}

// Render evaluates doc's code blocks in source order and produces the
// chapter body. A failing block contributes an inline error marker and
// never suppresses later segments. A missing interpreter is an
// environment failure and fails the chapter instead.
func (r *Renderer) Render(ctx context.Context, doc *document.Document, opts Options) (*Chapter, error) {
	log := r.log.With("chapter", opts.Slug)

	// Blocks run against a scratch figure dir so that file creation can
	// be attributed per block and rebuilds stay byte-identical.
	scratch, err := os.MkdirTemp("", "weave-fig-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	sessions := make(map[string]engine.Session)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	ch := &Chapter{Doc: doc, Slug: opts.Slug, Title: doc.Title}

	chain := sha256.New()
	blockNum := 0
	for _, seg := range doc.Segments {
		if seg.Kind != document.KindCode {
			continue
		}
		blockNum++

		// The cache key chains over every earlier block and the engine
		// behind this one, so editing block N invalidates N and
		// everything after it, and swapping an interpreter command
		// drops its stale entries.
		fmt.Fprintf(chain, "%s\x00%s\x00%s\x00%s\x00%s\x00", r.engines.Fingerprint(seg.Lang), seg.Lang, seg.Label, canonicalOptions(seg.Options), seg.Code)
		key := fmt.Sprintf("%x", chain.Sum(nil))

		res := r.runBlock(ctx, seg, sessions, scratch, key, blockNum, opts, log)
		ch.Results = append(ch.Results, res)
		if res == nil {
			return nil, fmt.Errorf("chapter %s: no session for %q blocks", opts.Slug, seg.Lang)
		}
		if res.Failed() {
			ch.FailedBlocks++
		}
	}

	woven := Weave(doc, ch.Results, opts.FigureRef)
	body, headings, err := ToHTML([]byte(woven))
	if err != nil {
		return nil, fmt.Errorf("convert chapter %s: %w", opts.Slug, err)
	}
	ch.Body = body
	ch.Headings = headings
	if len(headings) > 0 && headings[0].Level == 1 {
		ch.Title = headings[0].Text
	}
	return ch, nil
}

// runBlock executes one code segment and moves any figures it produced
// into place. Returns nil only when a required session cannot be created.
func (r *Renderer) runBlock(ctx context.Context, seg *document.Segment, sessions map[string]engine.Session, scratch, key string, blockNum int, opts Options, log *slog.Logger) *document.Result {
	if !seg.Options.Eval() {
		return &document.Result{}
	}

	eng, ok := r.engines.For(seg.Lang)
	if !ok {
		// Unknown language: the block is display-only.
		return &document.Result{}
	}

	if r.cache != nil && seg.Options.Cache() {
		if res, ok := r.cache.Get(key, opts.FigureDir); ok {
			log.Debug("cache hit", "block", blockNum, "lang", seg.Lang)
			return res
		}
	}

	sess, ok := sessions[seg.Lang]
	if !ok {
		var err error
		sess, err = eng.NewSession(scratch)
		if err != nil {
			log.Error("session unavailable", "lang", seg.Lang, "error", err)
			return nil
		}
		sessions[seg.Lang] = sess
	}

	raw, execErr := sess.Exec(ctx, seg.Code)
	res := &document.Result{Output: raw.Output}
	if execErr != nil {
		res.Err = execErr.Error()
		log.Warn("block failed", "block", blockNum, "line", seg.Line, "error", execErr)
	}

	// Promote figures out of the scratch dir under deterministic names.
	for i, name := range raw.Images {
		dst := figureName(opts.Slug, seg.Label, blockNum, i, filepath.Ext(name))
		if err := moveFile(filepath.Join(scratch, name), filepath.Join(opts.FigureDir, dst)); err != nil {
			log.Error("move figure", "figure", name, "error", err)
			continue
		}
		res.Images = append(res.Images, dst)
	}

	if r.cache != nil && seg.Options.Cache() && !res.Failed() {
		if err := r.cache.Put(key, res, opts.FigureDir); err != nil {
			log.Warn("cache write failed", "block", blockNum, "error", err)
		}
	}
	return res
}

// figureName builds the deterministic output name for a block's i-th figure.
func figureName(slug, label string, blockNum, i int, ext string) string {
	id := label
	if id == "" {
		id = fmt.Sprintf("block-%d", blockNum)
	}
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("%s_%s_%d%s", slug, Slugify(id), i+1, ext)
}

// canonicalOptions renders the option bag in sorted order for hashing.
func canonicalOptions(o document.Options) string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s;", k, o[k])
	}
	return sb.String()
}

func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Rename can fail across filesystems; fall back to copy.
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

var (
	slugNonAlnum = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes   = regexp.MustCompile(`-+`)
)

// Slugify turns a title or label into a URL- and filename-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}
