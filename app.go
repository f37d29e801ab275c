package main

import (
	"context"
	"log/slog"

	"github.com/chazu/meadow/pkg/config"
	"github.com/chazu/meadow/pkg/engine"
	"github.com/chazu/meadow/pkg/kernel"
	"github.com/chazu/meadow/pkg/scatter"
	"github.com/chazu/meadow/pkg/tessellate"
	"github.com/samber/lo"
)

// kindColors assigns a palette to each kind of body. Instances cycle
// through theirs by position in the mesh list.
var kindColors = map[string][]string{
	"surface":  {"#8B7D5B"},
	"obstacle": {"#7F8C8D", "#95A5A6"},
	"instance": {"#2ECC71", "#27AE60", "#A3CB38", "#6AB04C", "#78E08F", "#38ADA9"},
}

const fallbackColor = "#E74C3C"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	kernel kernel.Kernel
	cfg    config.Config
	log    *slog.Logger
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Color    string    `json:"color"`
}

// PlacementData is one accepted placement.
type PlacementData struct {
	Run      string     `json:"run"`
	Position [3]float64 `json:"position"`
	Template string     `json:"template"`
	Scale    float64    `json:"scale"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes     []MeshData      `json:"meshes"`
	Placements []PlacementData `json:"placements"`
	Errors     []EvalErrorData `json:"errors"`
	Warnings   []EvalErrorData `json:"warnings"`
}

// NewApp creates a new App whose engine and kernel follow cfg.
func NewApp(cfg config.Config) *App {
	eng := engine.NewEngine(engine.WithConfig(cfg))
	return &App{
		engine: eng,
		kernel: eng.Kernel(),
		cfg:    cfg,
		log:    slog.Default().With("component", "app"),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.log.Info("meadow started")
}

// Evaluate takes Lisp source and returns meshes, placements and errors.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:     []MeshData{},
		Placements: []PlacementData{},
		Errors:     []EvalErrorData{},
		Warnings:   []EvalErrorData{},
	}

	d, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, superseded)
		a.log.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = lo.Map(evalErrs, func(e engine.EvalError, _ int) EvalErrorData {
			return EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
		})
		return result
	}
	result.Warnings = append(result.Warnings, lo.Map(d.Warnings, func(w engine.EvalWarning, _ int) EvalErrorData {
		return EvalErrorData{Message: w.Message}
	})...)

	for _, run := range d.Runs {
		result.Placements = append(result.Placements, lo.Map(run.Result.Placements, func(p scatter.Placement, _ int) PlacementData {
			return PlacementData{
				Run:      run.ID.String(),
				Position: p.Position.Array(),
				Template: string(p.Template),
				Scale:    p.Scale,
			}
		})...)
	}

	meshes, err := tessellate.Tessellate(d.Scene, a.kernel, a.cfg.Mesh.Workers)
	if err != nil {
		a.log.Error("tessellate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	seen := map[string]int{}
	for _, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Kind:     m.Kind,
			Color:    colorFor(m.Kind, seen[m.Kind]),
		})
		seen[m.Kind]++
	}

	a.log.Debug("evaluate done",
		"meshes", len(result.Meshes),
		"placements", len(result.Placements),
		"warnings", len(result.Warnings))
	return result
}

func colorFor(kind string, i int) string {
	palette, ok := kindColors[kind]
	if !ok {
		return fallbackColor
	}
	return palette[i%len(palette)]
}
