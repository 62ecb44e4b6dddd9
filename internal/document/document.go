package document

import (
	"strconv"
	"strings"
)

// SegmentKind distinguishes prose from executable code in a literate document.
type SegmentKind int

const (
	KindProse SegmentKind = iota
	KindCode
)

// Document is a parsed literate document: an ordered sequence of segments.
type Document struct {
	Path     string     // Source file path (as given to the parser)
	Title    string     // From the first level-1 heading, or the filename
	Segments []*Segment // In source order
}

// Segment is one region of a literate document.
type Segment struct {
	Kind SegmentKind

	// Prose segments: the source text, reproduced verbatim.
	Text string

	// Code segments.
	Lang    string  // Language tag from the fence header ("go", "sh", ...)
	Label   string  // Optional block label from the fence header
	Code    string  // Fence body, without the fence lines
	Options Options // Recognized fence options

	Line int // 1-based line of the segment start in the source file
}

// Options is the flat option bag attached to a code fence.
// Values are kept as the raw strings from the fence header; typed
// accessors apply defaults for unset or malformed values.
type Options map[string]string

// Recognized option keys.
const (
	OptEcho      = "echo"       // show the source (default true)
	OptEval      = "eval"       // execute the block (default true)
	OptInclude   = "include"    // emit anything at all (default true)
	OptCache     = "cache"      // reuse cached output (default false)
	OptFigWidth  = "fig.width"  // figure width in inches
	OptFigHeight = "fig.height" // figure height in inches
)

// Bool returns the option as a bool, or def if unset or unparseable.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

// Float returns the option as a float64, or def if unset or unparseable.
func (o Options) Float(key string, def float64) float64 {
	v, ok := o[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Echo reports whether the block's source should appear in the page.
func (o Options) Echo() bool { return o.Bool(OptEcho, true) }

// Eval reports whether the block should be executed.
func (o Options) Eval() bool { return o.Bool(OptEval, true) }

// Include reports whether the block emits anything into the page.
func (o Options) Include() bool { return o.Bool(OptInclude, true) }

// Cache reports whether the block's output may be served from the cache.
func (o Options) Cache() bool { return o.Bool(OptCache, false) }

// Result is the captured output of one executed code block, associated
// with its source block by position.
type Result struct {
	Output string   // stdout plus the printed form of the final value
	Images []string // Relative paths of figures produced by the block, in order
	Err    string   // Non-empty if execution failed; rendered inline
}

// Failed reports whether the block's execution raised an error.
func (r *Result) Failed() bool { return r.Err != "" }

// CodeBlocks returns the document's code segments in order.
func (d *Document) CodeBlocks() []*Segment {
	var blocks []*Segment
	for _, s := range d.Segments {
		if s.Kind == KindCode {
			blocks = append(blocks, s)
		}
	}
	return blocks
}
