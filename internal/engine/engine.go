// Package engine runs code blocks from literate documents. Each document
// gets one Session per language; a session sees state left behind by
// earlier blocks and is discarded when the document is done.
package engine

import (
	"context"
	"os"
	"sort"
	"strings"
)

// Result is the raw captured output of one block execution.
type Result struct {
	Output string   // Combined stdout/stderr plus the printed final value
	Images []string // Names of files the block created in the figure dir
}

// Engine creates evaluation sessions for one language.
type Engine interface {
	Name() string
	NewSession(figDir string) (Session, error)
}

// Session executes blocks in order, carrying state between them.
// Exec returns a non-nil error when the block itself failed; the session
// remains usable for subsequent blocks.
type Session interface {
	Exec(ctx context.Context, code string) (Result, error)
	Close() error
}

// Registry maps language tags to engines.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register binds a language tag to an engine, replacing any prior binding.
func (r *Registry) Register(lang string, e Engine) {
	r.engines[lang] = e
}

// For returns the engine for a language tag, if one is registered.
func (r *Registry) For(lang string) (Engine, bool) {
	e, ok := r.engines[lang]
	return e, ok
}

// Fingerprint identifies the engine bound to a language tag, including
// its interpreter command when it has one. Cached block output is keyed
// on it, so output produced by a replaced interpreter is not reused.
func (r *Registry) Fingerprint(lang string) string {
	e, ok := r.engines[lang]
	if !ok {
		return ""
	}
	if c, ok := e.(interface{ Command() []string }); ok {
		return e.Name() + ":" + strings.Join(c.Command(), " ")
	}
	return e.Name()
}

// DefaultRegistry wires the built-in engines: the embedded Go interpreter
// for "go" blocks and stdin-fed script interpreters for the rest.
// commands maps extra language tags to interpreter argv lines from config.
func DefaultRegistry(commands map[string][]string) *Registry {
	r := NewRegistry()
	r.Register("go", &GoEngine{})
	r.Register("sh", NewScriptEngine("sh", []string{"/bin/sh"}, ShellPrint))
	r.Register("bash", NewScriptEngine("bash", []string{"/bin/bash"}, ShellPrint))
	r.Register("python", NewScriptEngine("python", []string{"python3", "-"}, PythonPrint))
	r.Register("r", NewScriptEngine("r", []string{"Rscript", "-"}, RPrint))
	for lang, argv := range commands {
		if len(argv) == 0 {
			continue
		}
		r.Register(lang, NewScriptEngine(lang, argv, printStmtFor(lang)))
	}
	return r
}

func printStmtFor(lang string) PrintStmt {
	switch lang {
	case "python":
		return PythonPrint
	case "r":
		return RPrint
	default:
		return ShellPrint
	}
}

// snapshotDir records the current file names in a directory.
func snapshotDir(dir string) map[string]bool {
	seen := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return seen
	}
	for _, e := range entries {
		if !e.IsDir() {
			seen[e.Name()] = true
		}
	}
	return seen
}

// newFiles returns names present in dir but absent from before, sorted so
// figure attribution is deterministic across builds.
func newFiles(dir string, before map[string]bool) []string {
	var created []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() && !before[e.Name()] {
			created = append(created, e.Name())
		}
	}
	sort.Strings(created)
	return created
}
