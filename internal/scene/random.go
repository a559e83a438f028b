package scene

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// NewRand returns a generator seeded with seed, or from the runtime when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func randFloat(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// randomDirection samples a unit vector uniformly over the sphere.
func randomDirection(rng *rand.Rand) mgl64.Vec3 {
	u := (rng.Float64() - 0.5) * 2
	t := rng.Float64() * math.Pi * 2
	f := math.Sqrt(1 - u*u)
	return mgl64.Vec3{f * math.Cos(t), f * math.Sin(t), u}
}
