package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

// Heading is one entry collected for chapter and index navigation.
type Heading struct {
	Level int
	Text  string
	ID    string
}

// Woven markdown is our own build product, so raw HTML (the hidden-block
// markers) may pass through unescaped.
var converter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldhtml.WithUnsafe()),
)

// ToHTML converts woven markdown to body HTML, anchoring every heading
// with a stable id and collecting the heading outline.
func ToHTML(md []byte) ([]byte, []Heading, error) {
	var buf bytes.Buffer
	if err := converter.Convert(md, &buf); err != nil {
		return nil, nil, fmt.Errorf("markdown convert: %w", err)
	}
	return anchorHeadings(buf.Bytes())
}

// anchorHeadings walks the converted HTML, assigns each h1-h6 an id
// derived from its text (deduplicated in document order), and returns the
// re-serialized body together with the outline.
func anchorHeadings(body []byte) ([]byte, []Heading, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse rendered html: %w", err)
	}

	var headings []Heading
	seen := make(map[string]int)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isHeadingTag(n.Data) {
			text := nodeText(n)
			id := Slugify(text)
			if id == "" {
				id = "section"
			}
			seen[id]++
			if seen[id] > 1 {
				id = fmt.Sprintf("%s-%d", id, seen[id])
			}
			if !hasAttr(n, "id") {
				n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: id})
			}
			headings = append(headings, Heading{
				Level: int(n.Data[1] - '0'),
				Text:  text,
				ID:    id,
			})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	bodyNode := findElement(doc, "body")
	if bodyNode == nil {
		return body, headings, nil
	}
	var out bytes.Buffer
	for c := bodyNode.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&out, c); err != nil {
			return nil, nil, fmt.Errorf("render html: %w", err)
		}
	}
	return out.Bytes(), headings, nil
}

func isHeadingTag(tag string) bool {
	return len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6'
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
