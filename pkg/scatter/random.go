package scatter

import "math/rand/v2"

// Rand is a seedable RandomSource. Two Rands built from the same seed
// produce the same sequence.
type Rand struct {
	r *rand.Rand
}

// NewRand returns a PCG-backed source.
func NewRand(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// UniformFloat returns a value in [min, max]. min == max returns min.
func (r *Rand) UniformFloat(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.r.Float64()*(max-min)
}

// UniformIndex returns an integer in [0, n).
func (r *Rand) UniformIndex(n int) int {
	return r.r.IntN(n)
}
