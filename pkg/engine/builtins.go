package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/meadow/pkg/kernel"
	"github.com/chazu/meadow/pkg/scatter"
	"github.com/chazu/meadow/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var errNonPositive = errors.New("dimensions must be positive")

// scatterKeywords are the keywords accepted by (scatter ...).
var scatterKeywords = []string{
	"surface", "templates", "parent", "count", "min-scale", "max-scale",
	"check-radius", "min-distance", "max-attempts", "clearance", "seed",
}

// registerBuiltins installs the Meadow DSL into env. Scene bodies go to
// d.Scene; every (scatter ...) form runs immediately and appends to d.Runs.
// Scatter runs stop early once ctx is done.
func registerBuiltins(ctx context.Context, env *zygo.Zlisp, e *Engine, d *Design) {
	k := e.kernel
	sc := d.Scene

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := toFloats(args, 3)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: scatter.Vec3{X: f[0], Y: f[1], Z: f[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// Shapes
	// -----------------------------------------------------------------------

	// (box x y z)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := positive("box", args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{solid: k.Box(f[0], f[1], f[2])}, nil
	})

	// (cylinder height radius)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := positive("cylinder", args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{solid: k.Cylinder(f[0], f[1])}, nil
	})

	// (sphere radius)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := positive("sphere", args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{solid: k.Sphere(f[0])}, nil
	})

	// (union a b ...)
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("union: expected at least 2 shapes, got %d", len(args))
		}
		var acc kernel.Solid
		for i, a := range args {
			s, err := toShape(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("union: argument %d: %w", i+1, err)
			}
			if acc == nil {
				acc = s
			} else {
				acc = k.Union(acc, s)
			}
		}
		return &sexpShape{solid: acc}, nil
	})

	// (translate shape x y z), (rotate shape x y z)
	for _, op := range []struct {
		name string
		fn   func(kernel.Solid, float64, float64, float64) kernel.Solid
	}{
		{"translate", k.Translate},
		{"rotate", k.Rotate},
	} {
		env.AddFunction(op.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 4 {
				return zygo.SexpNull, fmt.Errorf("%s: expected shape and 3 numbers, got %d arguments", op.name, len(args))
			}
			s, err := toShape(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op.name, err)
			}
			f, err := toFloats(args[1:], 3)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op.name, err)
			}
			return &sexpShape{solid: op.fn(s, f[0], f[1], f[2])}, nil
		})
	}

	// (scale shape k)
	env.AddFunction("scale", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("scale: expected shape and factor, got %d arguments", len(args))
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scale: %w", err)
		}
		f, err := positive("scale", args[1:], 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{solid: k.Scale(s, f[0])}, nil
	})

	// -----------------------------------------------------------------------
	// Scene bodies
	// -----------------------------------------------------------------------

	// (surface "name" shape :at (vec3 ...)), (obstacle "name" shape :at (vec3 ...))
	for _, kind := range []scene.Kind{scene.KindSurface, scene.KindObstacle} {
		fn := kind.String()
		add := sc.AddSurface
		if kind == scene.KindObstacle {
			add = sc.AddObstacle
		}
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s: expected name and shape, got %d arguments", fn, len(pa.positional))
			}
			bodyName, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
			}
			solid, err := toShape(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, bodyName, err)
			}
			if v, ok := pa.kw["at"]; ok {
				at, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s %q: at: %w", fn, bodyName, err)
				}
				solid = k.Translate(solid, at.X, at.Y, at.Z)
			}
			id, err := add(bodyName, solid)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			return &sexpBody{id: id, name: bodyName, kind: kind}, nil
		})
	}

	// (group "name")
	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("group: expected 1 argument (name), got %d", len(args))
		}
		groupName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: %w", err)
		}
		id, err := sc.AddGroup(groupName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: %w", err)
		}
		return &sexpBody{id: id, name: groupName, kind: scene.KindGroup}, nil
	})

	// (template "name" shape)
	env.AddFunction("template", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("template: expected name and shape, got %d arguments", len(args))
		}
		tplName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("template: name: %w", err)
		}
		solid, err := toShape(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("template %q: %w", tplName, err)
		}
		if err := sc.DefineTemplate(scatter.Template(tplName), solid); err != nil {
			return zygo.SexpNull, fmt.Errorf("template: %w", err)
		}
		return &zygo.SexpStr{S: tplName}, nil
	})

	// -----------------------------------------------------------------------
	// (scatter :surface ground :templates ["tuft" "clump"] :parent grass
	//          :count 200 :min-scale 0.5 :max-scale 1.5 :check-radius 1
	//          :min-distance 1 :max-attempts 100 :clearance 10 :seed 7)
	// -----------------------------------------------------------------------
	env.AddFunction("scatter", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("scatter: unexpected positional argument %s", pa.positional[0].SexpString(nil))
		}
		if bad := pa.unknownKeywords(scatterKeywords...); len(bad) > 0 {
			return zygo.SexpNull, fmt.Errorf("scatter: unknown keyword :%s", strings.Join(bad, " :"))
		}

		run, err := newRun(e, d, pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scatter: %w", err)
		}

		target, err := sc.Target(run.Surface, run.Parent)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scatter: %w", err)
		}
		p := &scatter.Placer{
			Surface:   sc,
			Collision: sc,
			Random:    scatter.NewRand(run.Seed),
			Factory:   sc,
			Logger:    e.log.With("run", run.ID.String(), "surface", run.Surface),
		}
		res, err := p.ScatterContext(ctx, target, run.Templates, run.Config)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scatter: %w", err)
		}
		run.Result = res
		d.Runs = append(d.Runs, run)
		return &sexpRun{run: run}, nil
	})
}

// newRun reads the (scatter ...) keywords on top of the engine's defaults.
// Values are checked by the placer, not here.
func newRun(e *Engine, d *Design, pa kwArgs) (*Run, error) {
	run := &Run{
		ID:     uuid.New(),
		Seed:   e.cfg.Scatter.Seed + uint64(len(d.Runs)),
		Config: e.cfg.Scatter.Config(),
	}

	v, ok := pa.kw["surface"]
	if !ok {
		return nil, fmt.Errorf("%w: :surface is required", scatter.ErrInvalidInput)
	}
	var err error
	if run.Surface, err = toName(v); err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	if v, ok := pa.kw["parent"]; ok {
		if run.Parent, err = toName(v); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
	}

	if v, ok := pa.kw["templates"]; ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			return nil, fmt.Errorf("templates: %w", err)
		}
		names := make([]string, 0, len(items))
		for i, it := range items {
			s, err := toName(it)
			if err != nil {
				return nil, fmt.Errorf("templates: item %d: %w", i+1, err)
			}
			names = append(names, s)
		}
		run.Templates = lo.Map(names, func(s string, _ int) scatter.Template {
			return scatter.Template(s)
		})
	} else {
		run.Templates = d.Scene.Templates()
	}
	for _, t := range run.Templates {
		if !d.Scene.HasTemplate(t) {
			return nil, fmt.Errorf("%w: %q", scene.ErrUnknownTemplate, t)
		}
	}

	ints := []struct {
		kw  string
		dst *int
	}{
		{"count", &run.Config.Count},
		{"max-attempts", &run.Config.MaxAttemptsPerItem},
	}
	for _, f := range ints {
		if v, ok := pa.kw[f.kw]; ok {
			n, err := toInt(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.kw, err)
			}
			*f.dst = n
		}
	}

	floats := []struct {
		kw  string
		dst *float64
	}{
		{"min-scale", &run.Config.MinScale},
		{"max-scale", &run.Config.MaxScale},
		{"check-radius", &run.Config.CollisionRadius},
		{"min-distance", &run.Config.MinSpacing},
		{"clearance", &run.Config.Clearance},
	}
	for _, f := range floats {
		if v, ok := pa.kw[f.kw]; ok {
			x, err := toFloat64(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.kw, err)
			}
			*f.dst = x
		}
	}

	if v, ok := pa.kw["seed"]; ok {
		if run.Seed, err = toUint64(v); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return run, nil
}

// positive extracts n numbers from args and requires each to be > 0.
func positive(fn string, args []zygo.Sexp, n int) ([]float64, error) {
	f, err := toFloats(args, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	for i, x := range f {
		if !(x > 0) {
			return nil, fmt.Errorf("%s: argument %d is %g: %w", fn, i+1, x, errNonPositive)
		}
	}
	return f, nil
}
