// Package kernel defines the abstract geometry kernel used to describe
// surfaces, obstacles and scatter templates. Solids answer signed distance
// queries, which is all the scene needs for ray casts and overlap tests.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Distance returns the signed distance from p to the solid's
	// boundary: negative inside, positive outside.
	Distance(p [3]float64) float64
}

// Kernel builds and meshes solids. All lengths share the scene's units
// and Y is up.
type Kernel interface {
	// Primitives. Box has its min corner at the origin; Cylinder stands
	// on the origin along +Y; Sphere is centered on the origin.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid
	Sphere(radius float64) Solid

	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Scale(s Solid, k float64) Solid        // uniform, about the origin

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
