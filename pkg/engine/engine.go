// Package engine provides the Lisp evaluation engine for Meadow.
// It wraps zygomys in a sandboxed environment; a script describes surfaces,
// obstacles, groups and templates, then runs (scatter ...) passes over them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/meadow/pkg/config"
	"github.com/chazu/meadow/pkg/kernel"
	"github.com/chazu/meadow/pkg/kernel/sdfx"
	"github.com/chazu/meadow/pkg/scatter"
	"github.com/chazu/meadow/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code, or invalid scatter
// input.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning reports a scatter run that skipped items. It refers to the
// run rather than a source position.
type EvalWarning struct {
	Message string
	RunID   uuid.UUID
	Surface string
}

// Run records one (scatter ...) form.
type Run struct {
	ID        uuid.UUID
	Surface   string
	Parent    string
	Templates []scatter.Template
	Seed      uint64
	Config    scatter.Config
	Result    *scatter.Result
}

// Design is everything one evaluation produced.
type Design struct {
	Scene    *scene.Scene
	Runs     []*Run
	Warnings []EvalWarning
}

// Placements returns the placements of every run in run order.
func (d *Design) Placements() []scatter.Placement {
	var out []scatter.Placement
	for _, r := range d.Runs {
		out = append(out, r.Result.Placements...)
	}
	return out
}

// Engine wraps the zygomys interpreter for Meadow evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh scene.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	kernel kernel.Kernel
	cfg    config.Config
	log    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel sets the geometry kernel. Defaults to sdfx.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) { e.kernel = k }
}

// WithConfig sets scatter defaults and scene options.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{cfg: config.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.kernel == nil {
		e.kernel = sdfx.NewWithCells(e.cfg.Mesh.Cells)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Kernel returns the geometry kernel designs are built with.
func (e *Engine) Kernel() kernel.Kernel {
	return e.kernel
}

// Evaluate takes Lisp source code and produces a new Design.
//
// Return semantics:
//   - On success: returns design + nil errors + nil error
//   - On parse/eval failure: returns nil design + eval errors + nil error
//   - On fatal failure: returns nil + nil + error, which wraps ErrTimeout
//     or ErrSuperseded when those apply
func (e *Engine) Evaluate(source string) (*Design, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), EvalTimeout)
	defer cancel()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		d, evalErrs, err := e.evaluate(ctx, source)
		ch <- evalResult{design: d, errors: evalErrs, err: err}
	}()

	return e.wait(ctx, ch, gen)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, source string) (*Design, []EvalError, error) {
	d := &Design{Scene: scene.New(e.kernel, e.cfg.Scene.Options())}
	d.Scene.SetLogger(e.log)

	// Empty source is a valid program that produces an empty design.
	if strings.TrimSpace(source) == "" {
		return d, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(ctx, env, e, d)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	for _, r := range d.Runs {
		if n := r.Result.SkippedCount(); n > 0 {
			d.Warnings = append(d.Warnings, EvalWarning{
				Message: fmt.Sprintf("scatter on %q: %d of %d items skipped", r.Surface, n, r.Config.Count),
				RunID:   r.ID,
				Surface: r.Surface,
			})
		}
	}

	e.log.Info("evaluation complete",
		"bodies", d.Scene.Len(),
		"runs", len(d.Runs),
		"placements", len(d.Placements()))
	return d, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
