// Package script drives a model from polyedit Lisp. Source runs in a
// sandboxed zygomys interpreter whose builtins turn into model commands:
//
//	(def a (box :size 1 :at (vec3 0 0 0)))
//	(move a 2 0 0)
//	(end-batch)
//	(material a 3)
//	(undo)
//
// The interpreter runs on its own goroutine, but every builtin that touches
// the model is handed back to the goroutine that called Evaluate, so the
// model keeps a single writer.
package script

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/polyedit/pkg/kernel"
	"github.com/chazu/polyedit/pkg/kernel/sdfx"
	"github.com/chazu/polyedit/pkg/model"
	"github.com/chazu/polyedit/pkg/snap"
	zygo "github.com/glycerine/zygomys/zygo"
)

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 5 * time.Second
	// DefaultKernelCells is the marching cubes resolution of solids built
	// by the cylinder builtin.
	DefaultKernelCells = 64
)

// EvalError is a parse or runtime error in user code.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is what a completed evaluation produced.
type Result struct {
	// Value is the printed value of the last expression.
	Value string
	// Applied counts the commands the script applied to the model.
	Applied int
	Errors  []EvalError
}

// Options configures an Engine.
type Options struct {
	Timeout time.Duration
	// Kernel builds the solids for the cylinder builtin.
	Kernel kernel.Kernel
	// Finder answers neighbour queries for the snap builtin. Without one,
	// snap fails.
	Finder snap.MeshFinder
	// Detector tunes the snap builtin.
	Detector *snap.Detector
}

// Engine evaluates scripts against a model. Each call to Evaluate uses a
// fresh sandbox, so runs do not share Lisp state.
type Engine struct {
	opts Options
}

// NewEngine returns an engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Kernel == nil {
		opts.Kernel = sdfx.NewWithCells(DefaultKernelCells)
	}
	if opts.Detector == nil {
		opts.Detector = snap.NewDetector(snap.WorldSpace{Scale: 1})
	}
	return &Engine{opts: opts}
}

// Evaluate runs source against m and must be called from the goroutine
// that owns m.
//
// Return semantics:
//   - On success: a Result with no Errors and a nil error.
//   - On parse or runtime failure: a Result carrying Errors and a nil
//     error. Commands applied before the failure stay applied.
//   - On timeout, cancellation, an invariant violation or a panic: nil and
//     the error.
func (e *Engine) Evaluate(ctx context.Context, source string, m *model.Model) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return &Result{}, nil
	}
	s := newSession(e, m)
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("script: panic during evaluation: %v", r)}
			}
		}()
		ch <- s.interpret(source)
	}()
	return s.serve(ctx, ch, e.opts.Timeout)
}

// interpret runs on the interpreter goroutine.
func (s *session) interpret(source string) outcome {
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	s.register(env)

	if err := env.LoadString(preprocess(source)); err != nil {
		return outcome{errors: parseZygomysError(err)}
	}
	v, err := env.Run()
	if err != nil {
		return outcome{errors: parseZygomysError(err)}
	}
	out := outcome{}
	if v != nil {
		out.value = v.SexpString(nil)
	}
	return out
}

var (
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError pulls the line number out of a zygomys error message
// when it carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
