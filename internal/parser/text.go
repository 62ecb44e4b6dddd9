package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextImporter converts a plain-text manuscript into literate markdown.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var md strings.Builder
	md.WriteString("# " + strings.TrimSuffix(filename, ".txt") + "\n")

	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			md.WriteString("\n")
			md.WriteString(current.String())
			md.WriteString("\n")
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return "", err
	}
	return md.String(), nil
}
