package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const starterConfig = `title: My Book
author: ""
source: chapters
output: site
cache: false
`

const starterChapter = `# Introduction

Prose goes here. Code blocks run when the book is built and their output
appears inline:

` + "```go" + `
x := 6 * 7
fmt.Println("the answer is", x)
` + "```" + `

Blocks lower in a chapter see state from earlier ones:

` + "```{go recall, echo=true}" + `
x + 1
` + "```" + `
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new book in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat("weave.yml"); err == nil {
			return fmt.Errorf("weave.yml already exists")
		}
		if err := os.WriteFile("weave.yml", []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("write weave.yml: %w", err)
		}
		if err := os.MkdirAll("chapters", 0o755); err != nil {
			return fmt.Errorf("create chapters dir: %w", err)
		}
		chapter := filepath.Join("chapters", "01-introduction.md")
		if err := os.WriteFile(chapter, []byte(starterChapter), 0o644); err != nil {
			return fmt.Errorf("write starter chapter: %w", err)
		}
		log.Info("book scaffolded", "config", "weave.yml", "chapter", chapter)
		return nil
	},
}
