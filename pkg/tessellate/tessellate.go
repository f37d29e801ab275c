// Package tessellate walks a scene and produces triangle meshes using a
// geometry kernel. One mesh is produced per surface, obstacle and instance.
package tessellate

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/chazu/meadow/pkg/kernel"
	"github.com/chazu/meadow/pkg/scene"
	"golang.org/x/sync/errgroup"
)

// Tessellate meshes every body of s that has geometry. Surfaces and
// obstacles come first, then instances; within each class the order
// follows a depth-first walk from the scene roots, so groups contribute
// their children in place. Bodies are meshed concurrently by at most
// workers goroutines (GOMAXPROCS when workers <= 0). The scene is never
// mutated.
func Tessellate(s *scene.Scene, k kernel.Kernel, workers int) ([]*kernel.Mesh, error) {
	if s == nil {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	bodies := collect(s)
	meshes := make([]*kernel.Mesh, len(bodies))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, b := range bodies {
		g.Go(func() error {
			m, err := k.ToMesh(b.Solid())
			if err != nil {
				return fmt.Errorf("tessellate: %s %s: %w", b.Kind, b.Label(), err)
			}
			m.Name = b.Label()
			m.Kind = b.Kind.String()
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// collect returns the bodies to mesh in output order.
func collect(s *scene.Scene) []*scene.Body {
	var out []*scene.Body
	var walk func(b *scene.Body)
	walk = func(b *scene.Body) {
		if b.Solid() != nil {
			out = append(out, b)
		}
		for _, c := range s.Children(b.ID) {
			walk(c)
		}
	}
	for _, r := range s.Roots() {
		walk(r)
	}

	slices.SortStableFunc(out, func(a, b *scene.Body) int {
		return rank(a.Kind) - rank(b.Kind)
	})
	return out
}

func rank(k scene.Kind) int {
	if k == scene.KindInstance {
		return 1
	}
	return 0
}
