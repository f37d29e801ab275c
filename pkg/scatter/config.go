package scatter

import (
	"fmt"
	"math"
)

// Defaults mirror the stock grass spawner settings.
const (
	DefaultCount              = 100
	DefaultMinScale           = 0.5
	DefaultMaxScale           = 1.5
	DefaultCollisionRadius    = 1.0
	DefaultMinSpacing         = 1.0
	DefaultMaxAttemptsPerItem = 100
	DefaultClearance          = 10.0
)

// Config controls a single run.
type Config struct {
	// Count is the number of items to try to place.
	Count int `json:"count"`
	// MinScale and MaxScale bound the isotropic scale factor.
	MinScale float64 `json:"min_scale"`
	MaxScale float64 `json:"max_scale"`
	// CollisionRadius is the radius of the post-placement overlap probe.
	CollisionRadius float64 `json:"collision_radius"`
	// MinSpacing is the smallest allowed distance between accepted items.
	MinSpacing float64 `json:"min_spacing"`
	// MaxAttemptsPerItem bounds position sampling for each item.
	MaxAttemptsPerItem int `json:"max_attempts_per_item"`
	// Clearance is how far above the area the probe ray starts.
	Clearance float64 `json:"clearance"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Count:              DefaultCount,
		MinScale:           DefaultMinScale,
		MaxScale:           DefaultMaxScale,
		CollisionRadius:    DefaultCollisionRadius,
		MinSpacing:         DefaultMinSpacing,
		MaxAttemptsPerItem: DefaultMaxAttemptsPerItem,
		Clearance:          DefaultClearance,
	}
}

// Validate checks ranges. Every failure wraps ErrInvalidInput.
func (c Config) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("%w: count %d is negative", ErrInvalidInput, c.Count)
	}
	if c.MaxAttemptsPerItem <= 0 {
		return fmt.Errorf("%w: max attempts per item %d must be positive", ErrInvalidInput, c.MaxAttemptsPerItem)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"min scale", c.MinScale},
		{"max scale", c.MaxScale},
		{"collision radius", c.CollisionRadius},
		{"min spacing", c.MinSpacing},
		{"clearance", c.Clearance},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidInput, f.name)
		}
	}
	if c.MinScale > c.MaxScale {
		return fmt.Errorf("%w: min scale %g exceeds max scale %g", ErrInvalidInput, c.MinScale, c.MaxScale)
	}
	if c.CollisionRadius < 0 {
		return fmt.Errorf("%w: collision radius %g is negative", ErrInvalidInput, c.CollisionRadius)
	}
	if c.MinSpacing < 0 {
		return fmt.Errorf("%w: min spacing %g is negative", ErrInvalidInput, c.MinSpacing)
	}
	if c.Clearance < 0 {
		return fmt.Errorf("%w: clearance %g is negative", ErrInvalidInput, c.Clearance)
	}
	return nil
}
