package render

import (
	"bytes"
	"fmt"
	"html/template"
)

// NavLink points at an adjacent chapter.
type NavLink struct {
	Title string
	Href  string
}

// PageData fills the chapter page template.
type PageData struct {
	BookTitle string
	Title     string
	Author    string
	Body      template.HTML
	Prev      *NavLink
	Next      *NavLink
}

// IndexEntry is one chapter row on the index page.
type IndexEntry struct {
	Title    string
	Href     string
	Headings []Heading
}

// IndexData fills the index page template.
type IndexData struct {
	BookTitle string
	Author    string
	Chapters  []IndexEntry
}

const baseCSS = `body{max-width:46rem;margin:0 auto;padding:1rem 1.5rem;font:17px/1.6 Georgia,serif;color:#222}
pre{background:#f6f6f4;padding:.75rem 1rem;overflow-x:auto;font-size:.85em}
code{font-family:Menlo,Consolas,monospace}
pre code.language-error{color:#a40000}
img{max-width:100%}
nav.book{display:flex;justify-content:space-between;margin:2rem 0;font-style:italic}
header.book{border-bottom:1px solid #ddd;margin-bottom:1.5rem;padding-bottom:.5rem}
header.book a{color:inherit;text-decoration:none}`

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} &mdash; {{.BookTitle}}</title>
<style>` + baseCSS + `</style>
</head>
<body>
<header class="book"><a href="index.html">{{.BookTitle}}</a>{{if .Author}} &middot; {{.Author}}{{end}}</header>
<main>
{{.Body}}</main>
<nav class="book">
<span>{{if .Prev}}<a href="{{.Prev.Href}}">&larr; {{.Prev.Title}}</a>{{end}}</span>
<span>{{if .Next}}<a href="{{.Next.Href}}">{{.Next.Title}} &rarr;</a>{{end}}</span>
</nav>
</body>
</html>
`))

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.BookTitle}}</title>
<style>` + baseCSS + `</style>
</head>
<body>
<header class="book">{{.BookTitle}}{{if .Author}} &middot; {{.Author}}{{end}}</header>
<main>
<h1>Contents</h1>
<ol>
{{range .Chapters}}<li><a href="{{.Href}}">{{.Title}}</a></li>
{{end}}</ol>
</main>
</body>
</html>
`))

// RenderPage wraps a chapter body in the page layout.
func RenderPage(data PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderIndex renders the book's table of contents page.
func RenderIndex(data IndexData) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return buf.Bytes(), nil
}
