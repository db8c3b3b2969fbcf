package race

import (
	"math/rand"
	"time"
)

type generator struct{ rand *rand.Rand }

func newGenerator(seed int64) *generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{rand.New(rand.NewSource(seed))}
}

// between returns a value in [min, max).
func (g *generator) between(min, max float64) float64 {
	return min + (max-min)*g.rand.Float64()
}

func (g *generator) chance(p float64) bool {
	return g.rand.Float64() < p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func easeInOutCubic(x float64) float64 {
	if x < 0.5 {
		return 4 * x * x * x
	}
	y := -2*x + 2
	return 1 - y*y*y/2
}

func easeOutCubic(x float64) float64 {
	y := 1 - x
	return 1 - y*y*y
}
