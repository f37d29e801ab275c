package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/chazu/meadow/pkg/kernel"
	"github.com/chazu/meadow/pkg/scatter"
	"github.com/chazu/meadow/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"
)

// ---------------------------------------------------------------------------
// Go values carried through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a kernel solid between shape builtins.
type sexpShape struct {
	solid kernel.Solid
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	min, max := s.solid.BoundingBox()
	return fmt.Sprintf("(shape %.2f %.2f %.2f .. %.2f %.2f %.2f)",
		min[0], min[1], min[2], max[0], max[1], max[2])
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a scatter.Vec3.
type sexpVec3 struct {
	vec scatter.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpBody refers to a named scene body.
type sexpBody struct {
	id   scatter.Handle
	name string
	kind scene.Kind
}

func (b *sexpBody) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", b.kind, b.name)
}
func (b *sexpBody) Type() *zygo.RegisteredType { return nil }

// sexpRun is what (scatter ...) evaluates to.
type sexpRun struct {
	run *Run
}

func (r *sexpRun) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(run %s :placed %d :skipped %d)",
		r.run.ID, len(r.run.Result.Placements), r.run.Result.SkippedCount())
}
func (r *sexpRun) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword arguments
// ---------------------------------------------------------------------------

// isKW reports whether s is a keyword produced by preprocessSource and
// returns its name without the prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs is a mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into positional and keyword arguments. A trailing
// keyword with no value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	out := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			out.positional = append(out.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			out.kw[name] = args[i+1]
			i++
		} else {
			out.kw[name] = zygo.SexpNull
		}
	}
	return out
}

// unknownKeywords returns the keywords in pa that are not in allowed.
func (pa kwArgs) unknownKeywords(allowed ...string) []string {
	unknown := lo.Without(lo.Keys(pa.kw), allowed...)
	slices.Sort(unknown)
	return unknown
}

// ---------------------------------------------------------------------------
// Value extraction
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt accepts integers and integral floats that fit in an int.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		if v.Val < math.MinInt || v.Val > math.MaxInt {
			return 0, fmt.Errorf("integer %d out of range", v.Val)
		}
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			// float64(math.MaxInt) rounds up to 2^63, which is already out of range.
			if v.Val < math.MinInt || v.Val >= math.MaxInt {
				return 0, fmt.Errorf("integer %g out of range", v.Val)
			}
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toUint64(s zygo.Sexp) (uint64, error) {
	n, err := toInt(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("expected non-negative integer, got %d", n)
	}
	return uint64(n), nil
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toName accepts a body reference or a plain string name.
func toName(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpBody:
		return v.name, nil
	case *zygo.SexpStr:
		if name, ok := isKW(v); ok {
			return name, nil
		}
		return v.S, nil
	}
	return "", fmt.Errorf("expected name or body, got %T (%s)", s, s.SexpString(nil))
}

func toShape(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpShape); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (scatter.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return scatter.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toFloats extracts exactly n numbers.
func toFloats(args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}
