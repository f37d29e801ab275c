package engine

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/chazu/meadow/pkg/config"
	"github.com/chazu/meadow/pkg/scatter"
	"github.com/chazu/meadow/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Preprocessing
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(scatter :surface ground)`,
			expect: `(scatter "__kw_surface" ground)`,
		},
		{
			name:   "multiple keywords",
			input:  `(scatter :count 10 :seed 3)`,
			expect: `(scatter "__kw_count" 10 "__kw_seed" 3)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"say \":hi\"" :at`,
			expect: `"say \":hi\"" "__kw_at"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :kw a-b`",
			expect: "`raw :kw a-b`",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def tall-grass :min-scale)`,
			expect: `(def tall_grass "__kw_min-scale")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 -10 -1 -10)`,
			expect: `(vec3 -10 -1 -10)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  "; simple comment\n(box 1 1 1)",
			expect: "// simple comment\n(box 1 1 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// DSL
// ---------------------------------------------------------------------------

const meadowScene = `
; 20x20 slab, top face at y=0
(def ground (surface "ground" (box 20 1 20) :at (vec3 -10 -1 -10)))
(obstacle "rock" (sphere 1) :at (vec3 3 0.5 3))
(def grass (group "grass"))
(template "tuft" (cylinder 1 0.1))
(template "clump" (union (sphere 0.2) (translate (sphere 0.1) 0.2 0 0)))
`

func quietEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewEngine(opts...)
}

func evaluate(t *testing.T, eng *Engine, source string) *Design {
	t.Helper()
	d, evalErrs, err := eng.Evaluate(source)
	require.NoError(t, err)
	require.Empty(t, evalErrs)
	require.NotNil(t, d)
	return d
}

func evalErrors(t *testing.T, source string) []EvalError {
	t.Helper()
	d, evalErrs, err := quietEngine().Evaluate(source)
	require.NoError(t, err)
	require.Nil(t, d)
	require.NotEmpty(t, evalErrs)
	return evalErrs
}

func TestSceneBuiltins(t *testing.T) {
	d := evaluate(t, quietEngine(), meadowScene)
	sc := d.Scene

	assert.Equal(t, 3, sc.Len())
	assert.Equal(t, []scatter.Template{"clump", "tuft"}, sc.Templates())

	ground := sc.Lookup("ground")
	require.NotNil(t, ground)
	assert.Equal(t, scene.KindSurface, ground.Kind)
	area, err := sc.Area(ground.ID)
	require.NoError(t, err)
	assert.InDelta(t, -10, area.Min.X, 1e-6)
	assert.InDelta(t, 0, area.Max.Y, 1e-6)

	rock := sc.Lookup("rock")
	require.NotNil(t, rock)
	assert.Equal(t, scene.KindObstacle, rock.Kind)
	assert.InDelta(t, 0, rock.Solid().Distance([3]float64{3, 1.5, 3}), 1e-6)

	assert.Equal(t, scene.KindGroup, sc.Lookup("grass").Kind)
	assert.Empty(t, d.Runs)
}

func TestScatterBuiltin(t *testing.T) {
	src := meadowScene + `
(scatter :surface ground :templates ["tuft" "clump"] :parent grass
         :count 25 :min-scale 0.8 :max-scale 1.2 :check-radius 0.5
         :min-distance 1.5 :seed 7)
`
	d := evaluate(t, quietEngine(), src)
	require.Len(t, d.Runs, 1)
	run := d.Runs[0]

	assert.Equal(t, "ground", run.Surface)
	assert.Equal(t, "grass", run.Parent)
	assert.Equal(t, uint64(7), run.Seed)
	assert.Equal(t, 25, run.Config.Count)
	assert.Equal(t, 1.5, run.Config.MinSpacing)
	assert.NotEqual(t, uuid.Nil, run.ID)

	ps := d.Placements()
	require.NotEmpty(t, ps)
	assert.LessOrEqual(t, len(ps), 25)
	assert.Equal(t, len(ps)+run.Result.SkippedCount(), 25)

	rock := d.Scene.Lookup("rock").Solid()
	grass := d.Scene.Lookup("grass")
	assert.Len(t, d.Scene.Children(grass.ID), len(ps))
	for i, p := range ps {
		assert.InDelta(t, 0, p.Position.Y, 1e-2, "placement %d sits on the ground", i)
		assert.GreaterOrEqual(t, p.Scale, 0.8)
		assert.LessOrEqual(t, p.Scale, 1.2)
		assert.Contains(t, []scatter.Template{"tuft", "clump"}, p.Template)
		assert.Greater(t, rock.Distance(p.Position.Array()), 0.5)
		for _, q := range ps[:i] {
			assert.GreaterOrEqual(t, p.Position.Distance(q.Position), 1.5)
		}
		b, ok := d.Scene.Get(p.Handle)
		require.True(t, ok)
		assert.Equal(t, grass.ID, b.Parent)
	}
}

func TestScatterDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Scatter.Count = 5
	cfg.Scatter.Seed = 40
	src := meadowScene + `
(scatter :surface "ground")
(scatter :surface "ground" :templates ["tuft"])
`
	d := evaluate(t, quietEngine(WithConfig(cfg)), src)
	require.Len(t, d.Runs, 2)

	assert.Equal(t, []scatter.Template{"clump", "tuft"}, d.Runs[0].Templates)
	assert.Equal(t, []scatter.Template{"tuft"}, d.Runs[1].Templates)
	assert.Equal(t, uint64(40), d.Runs[0].Seed)
	assert.Equal(t, uint64(41), d.Runs[1].Seed)
	assert.Equal(t, 5, d.Runs[0].Config.Count)
	assert.Empty(t, d.Runs[0].Parent)
	assert.NotEqual(t, d.Runs[0].ID, d.Runs[1].ID)

	for _, p := range d.Runs[1].Result.Placements {
		assert.Equal(t, scatter.Template("tuft"), p.Template)
	}
}

func TestScatterIsDeterministic(t *testing.T) {
	src := meadowScene + `(scatter :surface ground :count 15 :seed 3)`
	eng := quietEngine()
	a := evaluate(t, eng, src).Placements()
	b := evaluate(t, eng, src).Placements()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Position, b[i].Position)
		assert.Equal(t, a[i].Template, b[i].Template)
		assert.Equal(t, a[i].Scale, b[i].Scale)
	}
}

func TestScatterWarnsOnSkips(t *testing.T) {
	// A 1x1 surface cannot hold five items ten units apart.
	src := `
(surface "patch" (box 1 1 1) :at (vec3 0 -1 0))
(template "tuft" (sphere 0.1))
(scatter :surface "patch" :count 5 :min-distance 10 :max-attempts 20 :check-radius 0.01)
`
	d := evaluate(t, quietEngine(), src)
	require.Len(t, d.Runs, 1)
	res := d.Runs[0].Result
	assert.Len(t, res.Placements, 1)
	assert.Equal(t, 4, res.SkippedCount())

	require.Len(t, d.Warnings, 1)
	assert.Equal(t, d.Runs[0].ID, d.Warnings[0].RunID)
	assert.Equal(t, "patch", d.Warnings[0].Surface)
	assert.Contains(t, d.Warnings[0].Message, "4 of 5 items skipped")
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"non-positive box", `(box 1 0 1)`, "dimensions must be positive"},
		{"wrong arity", `(sphere 1 2)`, "expected 1 numbers"},
		{"not a shape", `(template "t" 3)`, "expected shape"},
		{"duplicate name", `(group "a") (group "a")`, "duplicate name"},
		{"missing surface", meadowScene + `(scatter :count 3)`, ":surface is required"},
		{"unknown surface", meadowScene + `(scatter :surface "lake")`, "unknown body"},
		{"surface is an obstacle", meadowScene + `(scatter :surface "rock")`, "not a surface"},
		{"unknown template", meadowScene + `(scatter :surface ground :templates ["fern"])`, "unknown template"},
		{"unknown keyword", meadowScene + `(scatter :surface ground :density 3)`, "unknown keyword :density"},
		{"invalid config", meadowScene + `(scatter :surface ground :min-scale 2 :max-scale 1)`, "invalid input"},
		{"no templates", `(surface "g" (box 1 1 1)) (scatter :surface "g")`, "invalid input"},
		{"fractional count", meadowScene + `(scatter :surface ground :count 2.5)`, "expected integer"},
		{"count out of range", meadowScene + `(scatter :surface ground :count 1e20)`, "out of range"},
		{"seed out of range", meadowScene + `(scatter :surface ground :seed -1e30)`, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evalErrors(t, tt.source)
			assert.True(t, strings.Contains(errs[0].Message, tt.want),
				"message %q should contain %q", errs[0].Message, tt.want)
		})
	}
}

func TestVariablesAndArithmetic(t *testing.T) {
	src := `
(def half 5)
(def size (* half 2))
(def slab (surface "slab" (box size 1 size) :at (vec3 (- 0 half) -1 (- 0 half))))
(template "pebble" (sphere (/ 1.0 4)))
(scatter :surface slab :count 3 :min-distance 0.5)
`
	d := evaluate(t, quietEngine(), src)
	area, err := d.Scene.Area(d.Scene.Lookup("slab").ID)
	require.NoError(t, err)
	assert.InDelta(t, 10, area.Size().X, 1e-6)
	require.Len(t, d.Runs, 1)
	for _, p := range d.Placements() {
		assert.LessOrEqual(t, math.Abs(p.Position.X), 5.0)
		assert.LessOrEqual(t, math.Abs(p.Position.Z), 5.0)
	}
}

func TestToIntRange(t *testing.T) {
	tests := []struct {
		name string
		in   zygo.Sexp
		want int
		ok   bool
	}{
		{"int", &zygo.SexpInt{Val: 42}, 42, true},
		{"integral float", &zygo.SexpFloat{Val: 3}, 3, true},
		{"negative float", &zygo.SexpFloat{Val: -9e18}, -9e18, true},
		{"fraction", &zygo.SexpFloat{Val: 0.5}, 0, false},
		{"too large", &zygo.SexpFloat{Val: 1e20}, 0, false},
		{"two to the 63", &zygo.SexpFloat{Val: math.Ldexp(1, 63)}, 0, false},
		{"too small", &zygo.SexpFloat{Val: -1e20}, 0, false},
		{"string", &zygo.SexpStr{S: "7"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toInt(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
