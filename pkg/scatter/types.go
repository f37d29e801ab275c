package scatter

// Handle identifies a body owned by the host scene.
type Handle uint64

// NoHandle is the zero Handle. It never names a real body.
const NoHandle Handle = 0

// Template names an instantiable prototype. The placer only ever picks one
// at random and hands it back to the ObjectFactory.
type Template string

// Target describes where a run places things.
type Target struct {
	// Surface is the only body a probe may land on.
	Surface Handle `json:"surface"`
	// Parent receives instantiated objects. NoHandle places them at the root.
	Parent Handle `json:"parent"`
	// Bounds is the sampled volume, normally the surface's bounding box.
	Bounds Area `json:"bounds"`
}

// Hit is one intersection of a probe ray with a body.
type Hit struct {
	Object   Handle
	Point    Vec3
	Distance float64
}

// Placement is an accepted item. It is never modified after acceptance.
type Placement struct {
	Position Vec3     `json:"position"`
	Template Template `json:"template"`
	Scale    float64  `json:"scale"`
	// Handle is the instantiated body, or NoHandle when the placer runs
	// without an ObjectFactory.
	Handle Handle `json:"handle,omitempty"`
}

// SurfaceQuery casts rays against the host scene.
type SurfaceQuery interface {
	// CastDown returns every body hit along the ray. Order is unspecified.
	CastDown(origin, direction Vec3) []Hit
}

// CollisionQuery finds bodies around a point.
type CollisionQuery interface {
	// OverlapSphere returns every body within radius of center.
	OverlapSphere(center Vec3, radius float64) []Handle
}

// RandomSource supplies uniform random values.
type RandomSource interface {
	// UniformFloat returns a value in [min, max].
	UniformFloat(min, max float64) float64
	// UniformIndex returns an integer in [0, n). n is always positive.
	UniformIndex(n int) int
}

// ObjectFactory creates and removes bodies in the host scene.
type ObjectFactory interface {
	Instantiate(template Template, parent Handle) (Handle, error)
	SetTransform(h Handle, position Vec3, scale float64)
	Destroy(h Handle)
}
