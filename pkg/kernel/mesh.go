package kernel

import "math"

// Mesh is a flat triangle mesh: three floats per vertex and per normal,
// three indices per triangle. Name and Kind identify the scene body the
// mesh was built from.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned box around the vertices. ok is false for
// an empty mesh.
func (m *Mesh) Bounds() (min, max [3]float64, ok bool) {
	if m.IsEmpty() {
		return min, max, false
	}
	for i := range 3 {
		min[i], max[i] = math.Inf(1), math.Inf(-1)
	}
	for v := 0; v+2 < len(m.Vertices); v += 3 {
		for i := range 3 {
			x := float64(m.Vertices[v+i])
			min[i] = math.Min(min[i], x)
			max[i] = math.Max(max[i], x)
		}
	}
	return min, max, true
}
