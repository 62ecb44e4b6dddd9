package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// PrintStmt renders a language's statement for printing one literal line.
type PrintStmt func(literal string) string

func ShellPrint(s string) string  { return fmt.Sprintf("printf '%%s\\n' '%s'", s) }
func PythonPrint(s string) string { return fmt.Sprintf("print(%q)", s) }
func RPrint(s string) string      { return fmt.Sprintf("cat(%q, \"\\n\", sep=\"\")", s) }

// sentinel separates prior-state replay output from the current block's
// output. It never appears in manuscript code.
const sentinel = "::weave-block-boundary::"

// ScriptEngine runs blocks through an external interpreter fed on stdin.
// State between blocks is reproduced by replaying the accumulated script
// of earlier successful blocks and keeping only the output printed after
// a sentinel line. Replay is quadratic in block count; literate chapters
// are small. Blocks that errored are left out of later replays.
type ScriptEngine struct {
	name  string
	argv  []string
	print PrintStmt
}

func NewScriptEngine(name string, argv []string, print PrintStmt) *ScriptEngine {
	return &ScriptEngine{name: name, argv: argv, print: print}
}

func (e *ScriptEngine) Name() string { return e.name }

// Command returns the interpreter argv the engine runs blocks with.
func (e *ScriptEngine) Command() []string { return e.argv }

func (e *ScriptEngine) NewSession(figDir string) (Session, error) {
	if _, err := exec.LookPath(e.argv[0]); err != nil {
		return nil, fmt.Errorf("interpreter %q not found: %w", e.argv[0], err)
	}
	return &scriptSession{engine: e, figDir: figDir, produced: make(map[string]bool)}, nil
}

type scriptSession struct {
	engine   *ScriptEngine
	figDir   string
	prior    []string        // Successful block sources, replayed before each block
	produced map[string]bool // Files earlier blocks created; the replay recreates them
}

func (s *scriptSession) Exec(ctx context.Context, code string) (Result, error) {
	var script strings.Builder
	for _, block := range s.prior {
		script.WriteString(block)
		if !strings.HasSuffix(block, "\n") {
			script.WriteString("\n")
		}
	}
	script.WriteString(s.engine.print(sentinel))
	script.WriteString("\n")
	script.WriteString(code)

	before := snapshotDir(s.figDir)
	// Figures from earlier blocks may have been moved out of the dir
	// already; the replay recreates them, and they must not be credited
	// to the current block.
	for name := range s.produced {
		before[name] = true
	}

	cmd := exec.CommandContext(ctx, s.engine.argv[0], s.engine.argv[1:]...)
	cmd.Stdin = strings.NewReader(script.String())
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.Dir = s.figDir
	cmd.Env = append(os.Environ(), "WEAVE_FIG_DIR="+s.figDir)

	runErr := cmd.Run()

	res := Result{
		Output: afterSentinel(out.String()),
		Images: newFiles(s.figDir, before),
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		msg := strings.TrimSpace(res.Output)
		if msg == "" {
			msg = runErr.Error()
		}
		// The output moves into the error; keeping it in Output as well
		// would render it twice on the page.
		res.Output = ""
		return res, fmt.Errorf("%s", msg)
	}

	s.prior = append(s.prior, code)
	for _, name := range res.Images {
		s.produced[name] = true
	}
	return res, nil
}

func (s *scriptSession) Close() error { return nil }

// afterSentinel strips everything up to and including the sentinel line.
// If the replay itself died before reaching the sentinel, the full output
// is returned so the failure is visible.
func afterSentinel(out string) string {
	idx := strings.LastIndex(out, sentinel)
	if idx < 0 {
		return out
	}
	rest := out[idx+len(sentinel):]
	return strings.TrimPrefix(strings.TrimPrefix(rest, "\r\n"), "\n")
}
