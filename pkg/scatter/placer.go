package scatter

import (
	"context"
	"fmt"
	"log/slog"
)

// maxPrealloc caps the initial capacity of Result.Placements. Count is
// unbounded, so larger runs grow by append.
const maxPrealloc = 1024

// Result is the output of one run.
type Result struct {
	// Placements holds accepted items in acceptance order.
	Placements []Placement
	// Skipped holds one entry per item that did not make it.
	Skipped []*SkipError
	// Attempts is the total number of probe rays cast.
	Attempts int
}

// SkippedCount returns how many items were skipped.
func (r *Result) SkippedCount() int {
	return len(r.Skipped)
}

// Placer runs scatter passes against injected collaborators.
// Factory and Logger are optional.
type Placer struct {
	Surface   SurfaceQuery
	Collision CollisionQuery
	Random    RandomSource
	Factory   ObjectFactory
	Logger    *slog.Logger
}

// Scatter places up to cfg.Count templates on target.
//
// Invalid input is reported before any collaborator is called and yields a
// nil Result. Per-item failures never abort the run; they are collected in
// Result.Skipped and the run always returns what it accepted.
func (p *Placer) Scatter(target Target, templates []Template, cfg Config) (*Result, error) {
	return p.ScatterContext(context.Background(), target, templates, cfg)
}

// ScatterContext is Scatter with cancellation. ctx is checked before each
// item; once it is done the run stops and returns the items accepted so far
// together with an error wrapping ctx.Err().
func (p *Placer) ScatterContext(ctx context.Context, target Target, templates []Template, cfg Config) (*Result, error) {
	if err := p.validate(target, templates, cfg); err != nil {
		return nil, err
	}

	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	res := &Result{Placements: make([]Placement, 0, min(cfg.Count, maxPrealloc))}
	for i := 0; i < cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			log.Warn("scatter stopped", "item", i, "placed", len(res.Placements), "error", err)
			return res, fmt.Errorf("scatter stopped at item %d: %w", i, err)
		}
		pos, attempts, ok := p.sample(target, cfg, res.Placements)
		res.Attempts += attempts
		if !ok {
			log.Warn("no valid position found", "item", i, "attempts", attempts)
			res.Skipped = append(res.Skipped, &SkipError{Index: i, Reason: SkipNoPosition, Attempts: attempts})
			continue
		}

		tpl := templates[p.Random.UniformIndex(len(templates))]
		scale := p.Random.UniformFloat(cfg.MinScale, cfg.MaxScale)

		h := NoHandle
		if p.Factory != nil {
			var err error
			h, err = p.Factory.Instantiate(tpl, target.Parent)
			if err != nil {
				log.Warn("instantiate failed", "item", i, "template", tpl, "error", err)
				res.Skipped = append(res.Skipped, &SkipError{Index: i, Reason: SkipInstantiate, Attempts: attempts, Err: err})
				continue
			}
			p.Factory.SetTransform(h, pos, scale)
		}

		if blocker, hit := p.blocked(pos, cfg.CollisionRadius, target.Surface, h); hit {
			if h != NoHandle {
				p.Factory.Destroy(h)
			}
			log.Debug("placement discarded", "item", i, "position", pos, "blocker", blocker)
			res.Skipped = append(res.Skipped, &SkipError{Index: i, Reason: SkipCollision, Attempts: attempts, Blocker: blocker})
			continue
		}

		res.Placements = append(res.Placements, Placement{
			Position: pos,
			Template: tpl,
			Scale:    scale,
			Handle:   h,
		})
	}

	log.Info("scatter complete",
		"requested", cfg.Count,
		"placed", len(res.Placements),
		"skipped", len(res.Skipped),
		"attempts", res.Attempts)
	return res, nil
}

func (p *Placer) validate(target Target, templates []Template, cfg Config) error {
	if len(templates) == 0 {
		return fmt.Errorf("%w: no templates", ErrInvalidInput)
	}
	if p.Surface == nil || p.Collision == nil || p.Random == nil {
		return fmt.Errorf("%w: surface, collision and random sources are required", ErrInvalidInput)
	}
	if err := target.Bounds.Validate(); err != nil {
		return err
	}
	return cfg.Validate()
}

// sample draws candidate points until one lands on the surface clear of
// every accepted placement, or the attempt budget runs out.
func (p *Placer) sample(target Target, cfg Config, accepted []Placement) (Vec3, int, bool) {
	b := target.Bounds
	for attempt := 1; attempt <= cfg.MaxAttemptsPerItem; attempt++ {
		x := p.Random.UniformFloat(b.Min.X, b.Max.X)
		z := p.Random.UniformFloat(b.Min.Z, b.Max.Z)
		origin := Vec3{X: x, Y: b.Max.Y + cfg.Clearance, Z: z}

		for _, hit := range p.Surface.CastDown(origin, Down) {
			if hit.Object != target.Surface {
				continue
			}
			if spaced(hit.Point, accepted, cfg.MinSpacing) {
				return hit.Point, attempt, true
			}
		}
	}
	return Vec3{}, cfg.MaxAttemptsPerItem, false
}

// spaced reports whether candidate is at least minSpacing from every
// accepted placement. The first violation rejects the candidate.
func spaced(candidate Vec3, accepted []Placement, minSpacing float64) bool {
	for _, a := range accepted {
		if candidate.Distance(a.Position) < minSpacing {
			return false
		}
	}
	return true
}

// blocked returns the first body around pos that is neither the surface
// nor the item itself.
func (p *Placer) blocked(pos Vec3, radius float64, surface, self Handle) (Handle, bool) {
	for _, body := range p.Collision.OverlapSphere(pos, radius) {
		if body == surface || (self != NoHandle && body == self) {
			continue
		}
		return body, true
	}
	return NoHandle, false
}

// Scatter is a convenience wrapper for a Placer without a factory.
func Scatter(target Target, templates []Template, cfg Config, surface SurfaceQuery, collision CollisionQuery, random RandomSource) (*Result, error) {
	p := &Placer{Surface: surface, Collision: collision, Random: random}
	return p.Scatter(target, templates, cfg)
}
