package kernel

import (
	"math"
	"testing"
)

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      Mesh
		vertices  int
		triangles int
		empty     bool
	}{
		{"empty", Mesh{}, 0, 0, true},
		{"one triangle", Mesh{
			Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
			Indices:  []uint32{0, 1, 2},
		}, 3, 1, false},
		{"quad", Mesh{
			Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
			Indices:  []uint32{0, 1, 2, 2, 3, 0},
		}, 4, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.vertices {
				t.Errorf("VertexCount() = %d, want %d", got, tt.vertices)
			}
			if got := tt.mesh.TriangleCount(); got != tt.triangles {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.triangles)
			}
			if got := tt.mesh.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestMeshBounds(t *testing.T) {
	if _, _, ok := (&Mesh{}).Bounds(); ok {
		t.Error("Bounds() ok = true for empty mesh")
	}

	m := &Mesh{Vertices: []float32{1, -2, 3, -1, 4, 0.5, 0, 0, 7}}
	min, max, ok := m.Bounds()
	if !ok {
		t.Fatal("Bounds() ok = false")
	}
	if min != [3]float64{-1, -2, 0.5} {
		t.Errorf("min = %v", min)
	}
	if max != [3]float64{1, 4, 7} {
		t.Errorf("max = %v", max)
	}
}

// ballSolid is an exact sphere used to check the Solid contract.
type ballSolid struct {
	center [3]float64
	radius float64
}

func (b ballSolid) BoundingBox() (min, max [3]float64) {
	for i := range 3 {
		min[i] = b.center[i] - b.radius
		max[i] = b.center[i] + b.radius
	}
	return min, max
}

func (b ballSolid) Distance(p [3]float64) float64 {
	dx, dy, dz := p[0]-b.center[0], p[1]-b.center[1], p[2]-b.center[2]
	return math.Sqrt(dx*dx+dy*dy+dz*dz) - b.radius
}

var _ Solid = ballSolid{}

func TestSolidDistanceSign(t *testing.T) {
	var s Solid = ballSolid{center: [3]float64{1, 2, 3}, radius: 2}
	min, max := s.BoundingBox()
	if min != [3]float64{-1, 0, 1} || max != [3]float64{3, 4, 5} {
		t.Errorf("BoundingBox() = %v %v", min, max)
	}
	if d := s.Distance([3]float64{1, 2, 3}); d >= 0 {
		t.Errorf("center distance = %g, want negative", d)
	}
	if d := s.Distance([3]float64{1, 4, 3}); math.Abs(d) > 1e-12 {
		t.Errorf("surface distance = %g, want 0", d)
	}
	if d := s.Distance([3]float64{1, 7, 3}); d != 3 {
		t.Errorf("outside distance = %g, want 3", d)
	}
}
