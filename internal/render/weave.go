package render

import (
	"strings"

	"github.com/inkpot/weave/internal/document"
)

// Weave merges block results back into the document stream, keeping
// source order: each code block's captured output follows its source
// immediately. results must be positionally aligned with doc's code
// blocks. figRef is the relative URL prefix for figure images.
func Weave(doc *document.Document, results []*document.Result, figRef string) string {
	var out strings.Builder
	blockIdx := 0

	for _, seg := range doc.Segments {
		if seg.Kind == document.KindProse {
			out.WriteString(seg.Text)
			continue
		}

		var res *document.Result
		if blockIdx < len(results) {
			res = results[blockIdx]
		}
		blockIdx++
		if res == nil {
			res = &document.Result{}
		}

		if !seg.Options.Include() {
			// The segment still occupies its position; it is never
			// silently dropped.
			out.WriteString("<!-- hidden block " + seg.Lang + " -->\n")
			continue
		}

		if seg.Options.Echo() {
			out.WriteString("```" + seg.Lang + "\n")
			out.WriteString(ensureNewline(seg.Code))
			out.WriteString("```\n")
		}

		if res.Output != "" {
			out.WriteString("\n```text\n")
			out.WriteString(ensureNewline(res.Output))
			out.WriteString("```\n")
		}

		if res.Failed() {
			out.WriteString("\n```error\nError: ")
			out.WriteString(ensureNewline(res.Err))
			out.WriteString("```\n")
		}

		for _, img := range res.Images {
			out.WriteString("\n![" + seg.Label + "](" + figRef + img + ")\n")
		}
	}

	return out.String()
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
