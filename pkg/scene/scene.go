// Package scene is the in-process host for scatter runs. It owns the
// surfaces, obstacles, parent groups and instantiated templates, keeps them
// in an R-tree, and answers the ray and overlap queries the placer needs.
//
// A Scene is not safe for concurrent mutation. Read-only access (queries,
// tessellation) may happen from several goroutines once mutation stops.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/chazu/meadow/pkg/kernel"
	"github.com/chazu/meadow/pkg/scatter"
	"github.com/dhconnelly/rtreego"
)

var (
	ErrUnknownBody     = errors.New("scene: unknown body")
	ErrUnknownTemplate = errors.New("scene: unknown template")
	ErrDuplicateName   = errors.New("scene: duplicate name")
	ErrEmptyName       = errors.New("scene: empty name")
	ErrNotSurface      = errors.New("scene: body is not a surface")
	ErrNotGroup        = errors.New("scene: body is not a group")
)

// Compile-time interface checks.
var (
	_ scatter.SurfaceQuery   = (*Scene)(nil)
	_ scatter.CollisionQuery = (*Scene)(nil)
	_ scatter.ObjectFactory  = (*Scene)(nil)
)

// Kind enumerates the kinds of bodies in a scene.
type Kind int

const (
	KindSurface  Kind = iota // ground that probes land on
	KindObstacle             // static geometry that blocks placement
	KindGroup                // parent for instances, no geometry
	KindInstance             // a placed template
)

func (k Kind) String() string {
	switch k {
	case KindSurface:
		return "surface"
	case KindObstacle:
		return "obstacle"
	case KindGroup:
		return "group"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// Body is a node of the scene.
type Body struct {
	ID       scatter.Handle
	Kind     Kind
	Name     string
	Parent   scatter.Handle
	Children []scatter.Handle

	// Instance fields.
	Template scatter.Template
	Position scatter.Vec3
	Scale    float64

	shape   kernel.Solid // template shape before placement
	solid   kernel.Solid // world-space geometry, nil for groups
	bounds  rtreego.Rect
	indexed bool
}

// Bounds implements rtreego.Spatial.
func (b *Body) Bounds() rtreego.Rect {
	return b.bounds
}

// Label returns the body's name, or template#id for instances.
func (b *Body) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("%s#%d", b.Template, b.ID)
}

// Solid returns the body's world-space geometry, or nil for groups.
func (b *Body) Solid() kernel.Solid {
	return b.solid
}

// Options tunes scene queries.
type Options struct {
	// RayEpsilon is the distance at which sphere tracing reports a hit.
	RayEpsilon float64
	// MaxRaySteps bounds sphere tracing per body.
	MaxRaySteps int
	// MaxRayDistance is how far a probe ray travels.
	MaxRayDistance float64
}

// DefaultOptions returns the stock query settings.
func DefaultOptions() Options {
	return Options{
		RayEpsilon:     1e-4,
		MaxRaySteps:    256,
		MaxRayDistance: 1000,
	}
}

// Scene holds every body and template of one evaluation.
type Scene struct {
	kernel    kernel.Kernel
	opts      Options
	bodies    map[scatter.Handle]*Body
	order     []scatter.Handle
	names     map[string]scatter.Handle
	templates map[scatter.Template]kernel.Solid
	index     *rtreego.Rtree
	next      scatter.Handle
	log       *slog.Logger
}

// New creates an empty scene. Zero-valued options fall back to defaults.
func New(k kernel.Kernel, opts Options) *Scene {
	def := DefaultOptions()
	if opts.RayEpsilon <= 0 {
		opts.RayEpsilon = def.RayEpsilon
	}
	if opts.MaxRaySteps <= 0 {
		opts.MaxRaySteps = def.MaxRaySteps
	}
	if opts.MaxRayDistance <= 0 {
		opts.MaxRayDistance = def.MaxRayDistance
	}
	return &Scene{
		kernel:    k,
		opts:      opts,
		bodies:    make(map[scatter.Handle]*Body),
		names:     make(map[string]scatter.Handle),
		templates: make(map[scatter.Template]kernel.Solid),
		index:     rtreego.NewTree(3, 4, 16),
		log:       slog.Default(),
	}
}

// SetLogger replaces the logger used for query diagnostics. nil restores
// slog.Default().
func (s *Scene) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	s.log = l
}

// Kernel returns the kernel the scene builds instance geometry with.
func (s *Scene) Kernel() kernel.Kernel {
	return s.kernel
}

// AddSurface registers a named surface that probes can land on.
func (s *Scene) AddSurface(name string, solid kernel.Solid) (scatter.Handle, error) {
	return s.addStatic(name, KindSurface, solid)
}

// AddObstacle registers named static geometry that blocks placement.
func (s *Scene) AddObstacle(name string, solid kernel.Solid) (scatter.Handle, error) {
	return s.addStatic(name, KindObstacle, solid)
}

// AddGroup registers a named parent for instances.
func (s *Scene) AddGroup(name string) (scatter.Handle, error) {
	b, err := s.newNamed(name, KindGroup)
	if err != nil {
		return scatter.NoHandle, err
	}
	return b.ID, nil
}

func (s *Scene) addStatic(name string, kind Kind, solid kernel.Solid) (scatter.Handle, error) {
	if solid == nil {
		return scatter.NoHandle, fmt.Errorf("scene: %s %q has no geometry", kind, name)
	}
	b, err := s.newNamed(name, kind)
	if err != nil {
		return scatter.NoHandle, err
	}
	b.solid = solid
	if err := s.reindex(b); err != nil {
		s.forget(b)
		return scatter.NoHandle, err
	}
	return b.ID, nil
}

func (s *Scene) newNamed(name string, kind Kind) (*Body, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyName, kind)
	}
	if _, ok := s.names[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	b := s.newBody(kind)
	b.Name = name
	s.names[name] = b.ID
	return b, nil
}

func (s *Scene) newBody(kind Kind) *Body {
	s.next++
	b := &Body{ID: s.next, Kind: kind, Scale: 1}
	s.bodies[b.ID] = b
	s.order = append(s.order, b.ID)
	return b
}

// DefineTemplate registers a template shape. Instances are built by
// scaling the shape about its origin and translating it to the placement.
func (s *Scene) DefineTemplate(name scatter.Template, shape kernel.Solid) error {
	if name == "" {
		return fmt.Errorf("%w: template", ErrEmptyName)
	}
	if shape == nil {
		return fmt.Errorf("scene: template %q has no geometry", name)
	}
	if _, ok := s.templates[name]; ok {
		return fmt.Errorf("%w: template %q", ErrDuplicateName, name)
	}
	s.templates[name] = shape
	return nil
}

// Templates returns the defined template names in sorted order.
func (s *Scene) Templates() []scatter.Template {
	out := make([]scatter.Template, 0, len(s.templates))
	for name := range s.templates {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// HasTemplate reports whether name is defined.
func (s *Scene) HasTemplate(name scatter.Template) bool {
	_, ok := s.templates[name]
	return ok
}

// Get returns the body with the given handle.
func (s *Scene) Get(h scatter.Handle) (*Body, bool) {
	b, ok := s.bodies[h]
	return b, ok
}

// Lookup returns the named body, or nil.
func (s *Scene) Lookup(name string) *Body {
	h, ok := s.names[name]
	if !ok {
		return nil
	}
	return s.bodies[h]
}

// Bodies returns every live body in creation order.
func (s *Scene) Bodies() []*Body {
	out := make([]*Body, 0, len(s.bodies))
	for _, h := range s.order {
		if b, ok := s.bodies[h]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Roots returns live bodies without a parent, in creation order.
func (s *Scene) Roots() []*Body {
	var out []*Body
	for _, b := range s.Bodies() {
		if b.Parent == scatter.NoHandle {
			out = append(out, b)
		}
	}
	return out
}

// Children returns the live children of h.
func (s *Scene) Children(h scatter.Handle) []*Body {
	p, ok := s.bodies[h]
	if !ok {
		return nil
	}
	out := make([]*Body, 0, len(p.Children))
	for _, c := range p.Children {
		if b, ok := s.bodies[c]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Instances returns every live instance in creation order.
func (s *Scene) Instances() []*Body {
	var out []*Body
	for _, b := range s.Bodies() {
		if b.Kind == KindInstance {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of live bodies.
func (s *Scene) Len() int {
	return len(s.bodies)
}

// Area returns the bounding box of body h.
func (s *Scene) Area(h scatter.Handle) (scatter.Area, error) {
	b, ok := s.bodies[h]
	if !ok {
		return scatter.Area{}, fmt.Errorf("%w: %d", ErrUnknownBody, h)
	}
	if b.solid == nil {
		return scatter.Area{}, fmt.Errorf("scene: %s %q has no geometry", b.Kind, b.Name)
	}
	min, max := b.solid.BoundingBox()
	return scatter.Area{Min: scatter.VecFromArray(min), Max: scatter.VecFromArray(max)}, nil
}

// Target builds a scatter target on the named surface. An empty parent
// places instances at the scene root.
func (s *Scene) Target(surface, parent string) (scatter.Target, error) {
	sb := s.Lookup(surface)
	if sb == nil {
		return scatter.Target{}, fmt.Errorf("%w: %q", ErrUnknownBody, surface)
	}
	if sb.Kind != KindSurface {
		return scatter.Target{}, fmt.Errorf("%w: %q is a %s", ErrNotSurface, surface, sb.Kind)
	}
	area, err := s.Area(sb.ID)
	if err != nil {
		return scatter.Target{}, err
	}

	t := scatter.Target{Surface: sb.ID, Bounds: area}
	if parent != "" {
		pb := s.Lookup(parent)
		if pb == nil {
			return scatter.Target{}, fmt.Errorf("%w: %q", ErrUnknownBody, parent)
		}
		if pb.Kind != KindGroup {
			return scatter.Target{}, fmt.Errorf("%w: %q is a %s", ErrNotGroup, parent, pb.Kind)
		}
		t.Parent = pb.ID
	}
	return t, nil
}

// reindex refreshes b's entry in the R-tree from its current solid.
func (s *Scene) reindex(b *Body) error {
	if b.indexed {
		s.index.Delete(b)
		b.indexed = false
	}
	if b.solid == nil {
		return nil
	}
	min, max := b.solid.BoundingBox()
	rect, err := boxRect(min, max)
	if err != nil {
		return fmt.Errorf("scene: indexing %s %d: %w", b.Kind, b.ID, err)
	}
	b.bounds = rect
	s.index.Insert(b)
	b.indexed = true
	return nil
}

// forget drops b from every scene structure.
func (s *Scene) forget(b *Body) {
	if b.indexed {
		s.index.Delete(b)
		b.indexed = false
	}
	if b.Name != "" && s.names[b.Name] == b.ID {
		delete(s.names, b.Name)
	}
	if p, ok := s.bodies[b.Parent]; ok {
		for i, c := range p.Children {
			if c == b.ID {
				p.Children = append(p.Children[:i], p.Children[i+1:]...)
				break
			}
		}
	}
	delete(s.bodies, b.ID)
}

// rectPad keeps degenerate boxes (flat planes, points) indexable.
const rectPad = 1e-6

// boxRect converts a box to an R-tree rect. Boxes whose corner or extent
// is not finite are rejected.
func boxRect(min, max [3]float64) (rtreego.Rect, error) {
	p := make(rtreego.Point, 3)
	lengths := make([]float64, 3)
	for i := 0; i < 3; i++ {
		lo, hi := min[i], max[i]
		if hi < lo {
			lo, hi = hi, lo
		}
		p[i] = lo - rectPad
		lengths[i] = hi - lo + 2*rectPad
		if math.IsNaN(p[i]) || math.IsInf(p[i], 0) || math.IsNaN(lengths[i]) || math.IsInf(lengths[i], 0) {
			return rtreego.Rect{}, fmt.Errorf("scene: box %v..%v is not finite on axis %d", min, max, i)
		}
	}
	return rtreego.NewRect(p, lengths)
}
