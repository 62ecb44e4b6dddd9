package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkpot/weave/internal/document"
)

// Parse reads a literate chapter file and splits it into segments.
func Parse(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chapter: %w", err)
	}
	defer f.Close()
	return ParseReader(f, path)
}

// ParseReader splits literate markdown into an ordered segment stream.
// Prose is reproduced byte-for-byte; fenced blocks with a language tag
// become code segments. Fenced blocks without a language tag stay prose.
func ParseReader(r io.Reader, path string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	doc := &document.Document{
		Path:  path,
		Title: titleFromFilename(path),
	}

	var prose strings.Builder
	proseStart := 1
	lineNo := 0

	flushProse := func() {
		if prose.Len() > 0 {
			doc.Segments = append(doc.Segments, &document.Segment{
				Kind: document.KindProse,
				Text: prose.String(),
				Line: proseStart,
			})
			prose.Reset()
		}
		proseStart = lineNo + 1
	}

	var fence *fenceHeader // non-nil while inside a fence
	var code strings.Builder
	codeStart := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineNo++

		if fence != nil {
			if isFenceClose(line, fence.marker) {
				if fence.lang == "" {
					// Untagged display block: keep verbatim as prose,
					// fence lines included.
					prose.WriteString(fence.raw)
					prose.WriteString("\n")
					prose.WriteString(code.String())
					prose.WriteString(line)
					prose.WriteString("\n")
				} else {
					flushProse()
					doc.Segments = append(doc.Segments, &document.Segment{
						Kind:    document.KindCode,
						Lang:    fence.lang,
						Label:   fence.label,
						Code:    code.String(),
						Options: fence.options,
						Line:    codeStart,
					})
					proseStart = lineNo + 1
				}
				fence = nil
				code.Reset()
				continue
			}
			code.WriteString(line)
			code.WriteString("\n")
			continue
		}

		if h := parseFenceOpen(line); h != nil {
			fence = h
			codeStart = lineNo
			continue
		}

		if doc.Title == titleFromFilename(path) {
			if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
				doc.Title = strings.TrimSpace(t)
			}
		}
		prose.WriteString(line)
		prose.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read chapter: %w", err)
	}

	// Unclosed fence runs to EOF.
	if fence != nil {
		if fence.lang == "" {
			prose.WriteString(fence.raw)
			prose.WriteString("\n")
			prose.WriteString(code.String())
		} else {
			flushProse()
			doc.Segments = append(doc.Segments, &document.Segment{
				Kind:    document.KindCode,
				Lang:    fence.lang,
				Label:   fence.label,
				Code:    code.String(),
				Options: fence.options,
				Line:    codeStart,
			})
		}
	}
	flushProse()

	return doc, nil
}

type fenceHeader struct {
	marker  string // the backtick run that opened the fence
	raw     string // the original fence line
	lang    string
	label   string
	options document.Options
}

// parseFenceOpen recognizes ``` fences in both the plain form (```go)
// and the attributed form (```{go label, echo=false, fig.width=7}).
// Returns nil if the line does not open a fence.
func parseFenceOpen(line string) *fenceHeader {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || !strings.HasPrefix(trimmed, "```") {
		return nil
	}
	marker := trimmed[:len(trimmed)-len(strings.TrimLeft(trimmed, "`"))]
	info := strings.TrimSpace(trimmed[len(marker):])
	if strings.Contains(info, "`") {
		// Inline code on a line starting with backticks, not a fence.
		return nil
	}

	h := &fenceHeader{marker: marker, raw: line, options: document.Options{}}
	if info == "" {
		return h
	}

	if strings.HasPrefix(info, "{") && strings.HasSuffix(info, "}") {
		parseAttributedInfo(strings.TrimSuffix(strings.TrimPrefix(info, "{"), "}"), h)
		return h
	}

	// Plain form: first word is the language, the rest is ignored.
	h.lang = strings.Fields(info)[0]
	return h
}

// parseAttributedInfo fills lang, label and options from the inside of a
// {...} fence header. The first comma-field is "lang" or "lang label";
// remaining fields are key=value pairs.
func parseAttributedInfo(info string, h *fenceHeader) {
	for i, field := range strings.Split(info, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if i == 0 && !strings.Contains(field, "=") {
			parts := strings.Fields(field)
			h.lang = parts[0]
			if len(parts) > 1 {
				h.label = parts[1]
			}
			continue
		}
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if key != "" {
			h.options[key] = val
		}
	}
}

// isFenceClose matches a closing fence of at least the opener's length.
func isFenceClose(line, marker string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, marker) {
		return false
	}
	return strings.TrimLeft(trimmed, "`") == ""
}

func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(base, filepath.Ext(base)), ".")
}
