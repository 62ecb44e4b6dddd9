package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkpot/weave/internal/cache"
	"github.com/inkpot/weave/internal/document"
	"github.com/inkpot/weave/internal/engine"
	"github.com/inkpot/weave/internal/parser"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func parseDoc(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := parser.ParseReader(strings.NewReader(src), "test.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func renderDoc(t *testing.T, r *Renderer, doc *document.Document) *Chapter {
	t.Helper()
	ch, err := r.Render(context.Background(), doc, Options{
		Slug:      "test",
		FigureDir: t.TempDir(),
		FigureRef: "figures/",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return ch
}

func TestRender_ProseCodeProseOrder(t *testing.T) {
	r := New(engine.DefaultRegistry(nil), nil, testLogger())
	doc := parseDoc(t, "Prose A.\n\n```go\n1 + 1\n```\n\nProse B.\n")
	ch := renderDoc(t, r, doc)

	body := string(ch.Body)
	posA := strings.Index(body, "Prose A.")
	posCode := strings.Index(body, "1 + 1")
	posOut := strings.Index(body, ">2\n")
	posB := strings.Index(body, "Prose B.")
	if posA < 0 || posCode < 0 || posOut < 0 || posB < 0 {
		t.Fatalf("missing pieces in body:\n%s", body)
	}
	if !(posA < posCode && posCode < posOut && posOut < posB) {
		t.Errorf("order violated: A=%d code=%d out=%d B=%d\n%s", posA, posCode, posOut, posB, body)
	}
}

func TestRender_ErrorMarkerAndContinuation(t *testing.T) {
	r := New(engine.DefaultRegistry(nil), nil, testLogger())
	doc := parseDoc(t, "```go\nthis is not go\n```\n\n```go\n3 + 4\n```\n")
	ch := renderDoc(t, r, doc)

	if ch.FailedBlocks != 1 {
		t.Errorf("expected 1 failed block, got %d", ch.FailedBlocks)
	}
	body := string(ch.Body)
	errPos := strings.Index(body, "Error:")
	outPos := strings.Index(body, ">7\n")
	if errPos < 0 {
		t.Fatalf("no inline error marker:\n%s", body)
	}
	if outPos < 0 {
		t.Fatalf("block after the failure was suppressed:\n%s", body)
	}
	if errPos > outPos {
		t.Errorf("error marker should precede later block output")
	}
	if !strings.Contains(body, "language-error") {
		t.Errorf("error block missing its class:\n%s", body)
	}
}

func TestRender_OptionSemantics(t *testing.T) {
	r := New(engine.DefaultRegistry(nil), nil, testLogger())

	t.Run("echo=false hides source, keeps output", func(t *testing.T) {
		doc := parseDoc(t, "```{go, echo=false}\n40 + 2\n```\n")
		ch := renderDoc(t, r, doc)
		body := string(ch.Body)
		if strings.Contains(body, "40 + 2") {
			t.Errorf("source should be hidden:\n%s", body)
		}
		if !strings.Contains(body, "42") {
			t.Errorf("output should be shown:\n%s", body)
		}
	})

	t.Run("eval=false shows source, skips execution", func(t *testing.T) {
		doc := parseDoc(t, "```{go, eval=false}\npanic(\"never run\")\n```\n")
		ch := renderDoc(t, r, doc)
		body := string(ch.Body)
		if !strings.Contains(body, "never run") {
			t.Errorf("source should be shown:\n%s", body)
		}
		if ch.FailedBlocks != 0 {
			t.Errorf("skipped block must not run, got %d failures", ch.FailedBlocks)
		}
	})

	t.Run("include=false leaves a position marker", func(t *testing.T) {
		doc := parseDoc(t, "Before.\n\n```{go, include=false}\n1 + 1\n```\n\nAfter.\n")
		ch := renderDoc(t, r, doc)
		body := string(ch.Body)
		if strings.Contains(body, "1 + 1") || strings.Contains(body, ">2\n") {
			t.Errorf("include=false must hide source and output:\n%s", body)
		}
		if !strings.Contains(body, "hidden block") {
			t.Errorf("hidden block must still occupy its position:\n%s", body)
		}
	})
}

func TestRender_UnknownLanguageDisplayOnly(t *testing.T) {
	r := New(engine.DefaultRegistry(nil), nil, testLogger())
	doc := parseDoc(t, "```mystery\nwhatever syntax\n```\n")
	ch := renderDoc(t, r, doc)
	if ch.FailedBlocks != 0 {
		t.Errorf("unknown language must not fail, got %d", ch.FailedBlocks)
	}
	if !strings.Contains(string(ch.Body), "whatever syntax") {
		t.Errorf("unknown-language source should still display:\n%s", ch.Body)
	}
}

func TestRender_Idempotent(t *testing.T) {
	r := New(engine.DefaultRegistry(nil), nil, testLogger())
	src := "# Chapter\n\nIntro.\n\n```go\nx := 2\nx * 21\n```\n\nDone.\n"

	first := renderDoc(t, r, parseDoc(t, src))
	second := renderDoc(t, r, parseDoc(t, src))
	if !bytes.Equal(first.Body, second.Body) {
		t.Errorf("re-render differs:\n--- first\n%s\n--- second\n%s", first.Body, second.Body)
	}
}

// figEngine fakes a session that writes one figure per block.
type figEngine struct{}

func (figEngine) Name() string { return "fig" }
func (figEngine) NewSession(figDir string) (engine.Session, error) {
	return &figSession{dir: figDir}, nil
}

type figSession struct {
	dir string
	n   int
}

func (s *figSession) Exec(ctx context.Context, code string) (engine.Result, error) {
	s.n++
	name := fmt.Sprintf("raw-%d.png", s.n)
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte("png bytes"), 0o644); err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Output: "drew a figure\n", Images: []string{name}}, nil
}

func (s *figSession) Close() error { return nil }

func TestRender_FiguresMovedAndReferenced(t *testing.T) {
	reg := engine.NewRegistry()
	reg.Register("fig", figEngine{})
	r := New(reg, nil, testLogger())

	figDir := t.TempDir()
	doc := parseDoc(t, "```{fig scatter}\ndraw\n```\n")
	ch, err := r.Render(context.Background(), doc, Options{
		Slug:      "ch1",
		FigureDir: figDir,
		FigureRef: "figures/",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "ch1_scatter_1.png"
	if _, err := os.Stat(filepath.Join(figDir, want)); err != nil {
		t.Fatalf("figure not in output dir: %v", err)
	}
	if !strings.Contains(string(ch.Body), "figures/"+want) {
		t.Errorf("page should reference %s:\n%s", want, ch.Body)
	}
}

// cmdEngine fakes an interpreter-backed engine whose command line is
// part of its identity.
type cmdEngine struct {
	out  string
	argv []string
}

func (e cmdEngine) Name() string      { return "tool" }
func (e cmdEngine) Command() []string { return e.argv }
func (e cmdEngine) NewSession(figDir string) (engine.Session, error) {
	return cmdSession{out: e.out}, nil
}

type cmdSession struct{ out string }

func (s cmdSession) Exec(ctx context.Context, code string) (engine.Result, error) {
	return engine.Result{Output: s.out}, nil
}

func (s cmdSession) Close() error { return nil }

func TestRender_CacheKeyedToInterpreter(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer c.Close()

	src := "```{tool, cache=true}\nrun\n```\n"
	render := func(out string, argv []string) string {
		reg := engine.NewRegistry()
		reg.Register("tool", cmdEngine{out: out, argv: argv})
		ch := renderDoc(t, New(reg, c, testLogger()), parseDoc(t, src))
		return string(ch.Body)
	}

	if body := render("from v1\n", []string{"tool", "--v1"}); !strings.Contains(body, "from v1") {
		t.Fatalf("first render missing output:\n%s", body)
	}
	// Same command: the cached output is served even though the session
	// would now print something else.
	if body := render("fresh run\n", []string{"tool", "--v1"}); !strings.Contains(body, "from v1") {
		t.Errorf("expected a cache hit for an unchanged command:\n%s", body)
	}
	// Changed command: output cached under the old interpreter must not
	// be reused.
	body := render("from v2\n", []string{"tool", "--v2"})
	if strings.Contains(body, "from v1") {
		t.Errorf("stale interpreter output reused:\n%s", body)
	}
	if !strings.Contains(body, "from v2") {
		t.Errorf("new interpreter output missing:\n%s", body)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Chapter 3: Results!  ", "chapter-3-results"},
		{"already-fine", "already-fine"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
