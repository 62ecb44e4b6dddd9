package parser

import (
	"strings"
	"testing"

	"github.com/inkpot/weave/internal/document"
)

func TestHTMLImporter_HeadingsAndParagraphs(t *testing.T) {
	input := `<html><head><title>Old Manuscript</title></head><body>
<h1>Results</h1>
<p>We found things.</p>
<h2>Details</h2>
<p>Many   details
here.</p>
<script>ignore()</script>
</body></html>`

	imp := &HTMLImporter{}
	md, err := imp.Import(strings.NewReader(input), "old.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(md, "# Results") {
		t.Errorf("h1 not converted:\n%s", md)
	}
	if !strings.Contains(md, "## Details") {
		t.Errorf("h2 not converted:\n%s", md)
	}
	if !strings.Contains(md, "We found things.") {
		t.Errorf("paragraph lost:\n%s", md)
	}
	if !strings.Contains(md, "Many details here.") {
		t.Errorf("whitespace not normalized:\n%s", md)
	}
	if strings.Contains(md, "ignore()") {
		t.Errorf("script content leaked:\n%s", md)
	}
}

func TestHTMLImporter_PreBecomesDisplayFence(t *testing.T) {
	input := `<html><body><p>Intro</p><pre>raw
   layout</pre></body></html>`

	imp := &HTMLImporter{}
	md, err := imp.Import(strings.NewReader(input), "pre.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md, "```\nraw\n   layout\n```") {
		t.Errorf("pre block not fenced:\n%s", md)
	}

	// Imported fences stay prose when the result is parsed as a chapter.
	doc, err := ParseReader(strings.NewReader(md), "pre.md")
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	for _, seg := range doc.Segments {
		if seg.Kind != document.KindProse {
			t.Errorf("imported display fence became executable: %+v", seg)
		}
	}
}

func TestHTMLImporter_TitleFallback(t *testing.T) {
	imp := &HTMLImporter{}
	md, err := imp.Import(strings.NewReader("<html><head><title>From Title Tag</title></head><body><p>x</p></body></html>"), "m.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(md, "# From Title Tag") {
		t.Errorf("title tag not used:\n%s", md)
	}
}

func TestTextImporter_Paragraphs(t *testing.T) {
	input := "first line\nsame para\n\nsecond para\n"
	imp := &TextImporter{}
	md, err := imp.Import(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(md, "# notes") {
		t.Errorf("missing filename heading:\n%s", md)
	}
	if !strings.Contains(md, "first line\nsame para") {
		t.Errorf("paragraph merged wrong:\n%s", md)
	}
	if !strings.Contains(md, "\nsecond para\n") {
		t.Errorf("second paragraph lost:\n%s", md)
	}
}

func TestCSVImporter_Table(t *testing.T) {
	input := "name,score\nalice,10\nbob,7\n"
	imp := &CSVImporter{}
	md, err := imp.Import(strings.NewReader(input), "scores.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md, "| name | score |") {
		t.Errorf("header row missing:\n%s", md)
	}
	if !strings.Contains(md, "| --- | --- |") {
		t.Errorf("separator row missing:\n%s", md)
	}
	if !strings.Contains(md, "| alice | 10 |") {
		t.Errorf("data row missing:\n%s", md)
	}
}

func TestImporterFor(t *testing.T) {
	for _, name := range []string{"a.txt", "b.csv", "c.html", "d.pdf", "e.docx"} {
		if _, err := ImporterFor(name); err != nil {
			t.Errorf("ImporterFor(%q): %v", name, err)
		}
	}
	if _, err := ImporterFor("f.xyz"); err == nil {
		t.Error("expected error for unknown extension")
	}
	if IsImportExtension("f.xyz") {
		t.Error("xyz should not be importable")
	}
	if !IsChapterFile("ch.md") || IsChapterFile("ch.docx") {
		t.Error("chapter file detection wrong")
	}
}
