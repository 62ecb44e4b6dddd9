package render

import (
	"strings"
	"testing"

	"github.com/inkpot/weave/internal/document"
	"github.com/inkpot/weave/internal/parser"
)

func TestWeave_OutputFollowsSource(t *testing.T) {
	doc, err := parser.ParseReader(strings.NewReader("A\n\n```go\n1+1\n```\n\nB\n"), "t.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	woven := Weave(doc, []*document.Result{{Output: "2\n"}}, "figures/")

	wantOrder := []string{"A", "```go", "1+1", "```text", "2", "B"}
	last := -1
	for _, piece := range wantOrder {
		idx := strings.Index(woven, piece)
		if idx < 0 {
			t.Fatalf("missing %q in woven output:\n%s", piece, woven)
		}
		if idx < last {
			t.Fatalf("%q out of order:\n%s", piece, woven)
		}
		last = idx
	}
}

func TestWeave_MissingResultStillEmitsSource(t *testing.T) {
	doc, err := parser.ParseReader(strings.NewReader("```go\nx := 1\n```\n"), "t.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// No results at all: the block's source must still appear.
	woven := Weave(doc, nil, "figures/")
	if !strings.Contains(woven, "x := 1") {
		t.Errorf("source dropped without a result:\n%s", woven)
	}
}

func TestWeave_ErrorMarker(t *testing.T) {
	doc, err := parser.ParseReader(strings.NewReader("```go\nboom\n```\n"), "t.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	woven := Weave(doc, []*document.Result{{Err: "undefined: boom"}}, "figures/")
	if !strings.Contains(woven, "```error\nError: undefined: boom") {
		t.Errorf("expected inline error block:\n%s", woven)
	}
}

func TestWeave_FigureReferences(t *testing.T) {
	doc, err := parser.ParseReader(strings.NewReader("```{go plot}\ndraw()\n```\n"), "t.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := []*document.Result{{Images: []string{"ch_plot_1.png", "ch_plot_2.png"}}}
	woven := Weave(doc, res, "figures/")
	if !strings.Contains(woven, "![plot](figures/ch_plot_1.png)") {
		t.Errorf("first figure reference missing:\n%s", woven)
	}
	if strings.Index(woven, "ch_plot_1.png") > strings.Index(woven, "ch_plot_2.png") {
		t.Errorf("figure order not preserved:\n%s", woven)
	}
}
