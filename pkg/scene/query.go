package scene

import (
	"cmp"
	"slices"

	"github.com/chazu/meadow/pkg/kernel"
	"github.com/chazu/meadow/pkg/scatter"
)

// CastDown sphere-traces the ray from origin along direction against every
// body whose bounds the segment crosses. Each body contributes at most one
// hit, its nearest; hits are sorted by distance.
func (s *Scene) CastDown(origin, direction scatter.Vec3) []scatter.Hit {
	l := direction.Length()
	if l == 0 {
		return nil
	}
	dir := direction.Scale(1 / l)
	end := origin.Add(dir.Scale(s.opts.MaxRayDistance))

	var hits []scatter.Hit
	for _, b := range s.candidates("cast down", origin.Array(), end.Array()) {
		if b.solid == nil {
			continue
		}
		p, t, ok := march(b.solid, origin, dir, s.opts)
		if !ok {
			continue
		}
		hits = append(hits, scatter.Hit{Object: b.ID, Point: p, Distance: t})
	}

	slices.SortFunc(hits, func(a, b scatter.Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Object, b.Object)
	})
	return hits
}

// march sphere-traces a single solid. A ray starting inside the solid hits
// at its origin.
func march(solid kernel.Solid, origin, dir scatter.Vec3, opts Options) (scatter.Vec3, float64, bool) {
	t := 0.0
	for i := 0; i < opts.MaxRaySteps && t <= opts.MaxRayDistance; i++ {
		p := origin.Add(dir.Scale(t))
		d := solid.Distance(p.Array())
		if d < opts.RayEpsilon {
			return p, t, true
		}
		t += d
	}
	return scatter.Vec3{}, 0, false
}

// OverlapSphere returns the handles of all bodies within radius of center,
// sorted by handle. Groups are never indexed and never match.
func (s *Scene) OverlapSphere(center scatter.Vec3, radius float64) []scatter.Handle {
	if radius < 0 {
		return nil
	}
	r := scatter.Vec3{X: radius, Y: radius, Z: radius}
	var out []scatter.Handle
	for _, b := range s.candidates("overlap sphere", center.Sub(r).Array(), center.Add(r).Array()) {
		if b.solid.Distance(center.Array()) <= radius {
			out = append(out, b.ID)
		}
	}
	slices.Sort(out)
	return out
}

// candidates returns the indexed bodies whose bounds meet the box between
// min and max. A box the R-tree cannot hold falls back to every indexed body.
func (s *Scene) candidates(query string, min, max [3]float64) []*Body {
	rect, err := boxRect(min, max)
	if err != nil {
		s.log.Warn("broadphase skipped, scanning every body", "query", query, "error", err)
		var out []*Body
		for _, b := range s.Bodies() {
			if b.indexed {
				out = append(out, b)
			}
		}
		return out
	}

	found := s.index.SearchIntersect(rect)
	out := make([]*Body, len(found))
	for i, sp := range found {
		out[i] = sp.(*Body)
	}
	return out
}
