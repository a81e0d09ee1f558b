package physics

import (
	"math/rand/v2"
	"time"
)

// RNG wraps math/rand/v2 so lamp initialization can be seeded for tests.
type RNG struct {
	r *rand.Rand
}

// NewRNG returns a PCG-backed RNG. A zero seed picks one from the clock.
func NewRNG(seed int64) *RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))}
}

// Float64 returns a value in [0, 1).
func (r *RNG) Float64() float64 { return r.r.Float64() }

// Bool is a fair coin.
func (r *RNG) Bool() bool { return r.r.IntN(2) == 1 }

// IntN returns a value in [0, n).
func (r *RNG) IntN(n int) int { return r.r.IntN(n) }
