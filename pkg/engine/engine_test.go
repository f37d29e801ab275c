package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/chazu/meadow/pkg/kernel/sdfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateProducesEmptyDesign(t *testing.T) {
	for name, source := range map[string]string{
		"empty":       "",
		"whitespace":  "   \n\t  \n  ",
		"arithmetic":  "(+ 1 2)",
		"definitions": "(def x 10)\n(def y 20)\n(+ x y)",
		"comments":    ";; nothing\n; here",
	} {
		t.Run(name, func(t *testing.T) {
			d := evaluate(t, quietEngine(), source)
			assert.Zero(t, d.Scene.Len())
			assert.Empty(t, d.Runs)
			assert.Empty(t, d.Warnings)
			assert.Empty(t, d.Placements())
		})
	}
}

func TestEvaluateReportsErrors(t *testing.T) {
	for name, source := range map[string]string{
		"unmatched paren":  "(+ 1 2",
		"undefined symbol": "(+ 1 undefined-symbol)",
		"second line":      "(+ 1 2)\n(+ 3",
	} {
		t.Run(name, func(t *testing.T) {
			errs := evalErrors(t, source)
			assert.NotEmpty(t, errs[0].Message)
			assert.GreaterOrEqual(t, errs[0].Line, 0)
		})
	}
}

func TestEvaluateRepeatedly(t *testing.T) {
	eng := quietEngine()
	for i := 0; i < 5; i++ {
		d := evaluate(t, eng, `(surface "g" (box 2 1 2))`)
		assert.Equal(t, 1, d.Scene.Len(), "iteration %d starts from a fresh scene", i)
	}
}

func TestEngineOptions(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	k := sdfx.NewWithCells(8)

	eng := NewEngine(WithKernel(k), WithLogger(log))
	assert.Same(t, k, eng.Kernel())

	evaluate(t, eng, `(surface "g" (box 2 1 2))`)
	assert.Contains(t, buf.String(), "evaluation complete")
	assert.Contains(t, buf.String(), "bodies=1")

	assert.NotNil(t, NewEngine().Kernel())
}

func TestEvalErrorString(t *testing.T) {
	assert.Equal(t, "line 5: something went wrong", EvalError{Line: 5, Message: "something went wrong"}.Error())
	assert.Equal(t, "no location", EvalError{Message: "no location"}.Error())
}

func TestWaitTimesOut(t *testing.T) {
	eng := quietEngine()
	eng.generation = 1
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := eng.wait(ctx, make(chan evalResult), 1)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "generation 1")
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	eng := quietEngine()
	eng.generation = 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{design: &Design{}}

	d, _, err := eng.wait(context.Background(), ch, 1)
	require.ErrorIs(t, err, ErrSuperseded)
	assert.Nil(t, d)
	assert.Contains(t, err.Error(), "generation 1 replaced by 2")
}

func TestWaitReturnsCurrentResult(t *testing.T) {
	eng := quietEngine()
	eng.generation = 3

	want := &Design{}
	ch := make(chan evalResult, 1)
	ch <- evalResult{design: want}

	d, errs, err := eng.wait(context.Background(), ch, 3)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Same(t, want, d)
}

func TestEvaluateHugeCountTimesOut(t *testing.T) {
	// Every item after the first fails spacing at once, so the run would
	// loop for a very long time. It must end in a timeout, not a crash.
	src := `
(surface "patch" (box 1 1 1) :at (vec3 0 -1 0))
(template "tuft" (sphere 0.1))
(scatter :surface "patch" :count 1e12 :min-distance 100 :max-attempts 1 :check-radius 0.01)
`
	start := time.Now()
	d, evalErrs, err := quietEngine().Evaluate(src)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Nil(t, d)
	assert.Empty(t, evalErrs)
	assert.Less(t, time.Since(start), EvalTimeout+2*time.Second)
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: scatter: unknown template", 3, "scatter: unknown template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantLine, errs[0].Line)
			assert.Contains(t, errs[0].Message, tt.wantMsg)
		})
	}
}
