package engine

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// GoEngine evaluates "go" blocks with the embedded yaegi interpreter.
// One interpreter per session keeps declarations and values visible to
// later blocks without spawning any external process.
type GoEngine struct{}

func (e *GoEngine) Name() string { return "go" }

func (e *GoEngine) NewSession(figDir string) (Session, error) {
	out := &bytes.Buffer{}
	i := interp.New(interp.Options{Stdout: out, Stderr: out})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	// Pre-import the packages an analysis chapter reaches for constantly;
	// blocks can import anything else themselves.
	if _, err := i.Eval(`import ("fmt"; "math"; "os"; "sort"; "strconv"; "strings")`); err != nil {
		return nil, fmt.Errorf("preload imports: %w", err)
	}
	// Blocks reach the figure directory through a predeclared variable,
	// so figure writes need no process-global state.
	if _, err := i.Eval(fmt.Sprintf("figdir := %q", figDir)); err != nil {
		return nil, fmt.Errorf("bind figdir: %w", err)
	}
	if _, err := i.Eval("_ = figdir"); err != nil {
		return nil, fmt.Errorf("bind figdir: %w", err)
	}
	return &goSession{interp: i, out: out, figDir: figDir}, nil
}

type goSession struct {
	interp *interp.Interpreter
	out    *bytes.Buffer
	figDir string
}

func (s *goSession) Exec(ctx context.Context, code string) (res Result, err error) {
	s.out.Reset()
	before := snapshotDir(s.figDir)

	var v reflect.Value
	func() {
		// yaegi can panic on some malformed inputs; a panicking block is
		// a failed block, not a failed build.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		v, err = s.interp.EvalWithContext(ctx, code)
	}()

	res.Output = s.out.String()
	if err == nil && shouldPrintValue(code) && v.IsValid() && v.CanInterface() {
		if res.Output != "" && !strings.HasSuffix(res.Output, "\n") {
			res.Output += "\n"
		}
		res.Output += fmt.Sprintf("%v\n", v.Interface())
	}
	res.Images = newFiles(s.figDir, before)
	return res, err
}

func (s *goSession) Close() error { return nil }

// shouldPrintValue decides whether the block ends in a bare expression
// whose value should be echoed, mirroring interactive evaluation. Blocks
// ending in declarations, assignments or control flow print nothing.
func shouldPrintValue(code string) bool {
	lines := strings.Split(strings.TrimRight(code, "\n \t"), "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if l != "" && !strings.HasPrefix(l, "//") {
			last = l
			break
		}
	}
	if last == "" || strings.HasSuffix(last, "{") || strings.HasSuffix(last, "}") {
		return false
	}
	for _, op := range []string{":=", "=", "++", "--"} {
		if strings.Contains(last, op) && !insideCall(last, op) {
			return false
		}
	}
	switch strings.Fields(last)[0] {
	case "import", "func", "type", "var", "const", "return", "for", "if", "switch", "go", "defer":
		return false
	}
	return true
}

// insideCall reports whether op first appears inside parentheses, as in
// fmt.Println(x == y), which is still a printable expression.
func insideCall(line, op string) bool {
	idx := strings.Index(line, op)
	depth := 0
	for i, r := range line {
		if i >= idx {
			break
		}
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth > 0
}
