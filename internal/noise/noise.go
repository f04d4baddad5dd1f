// Package noise provides injectable measurement noise. Every acquisition
// should draw from its own Source so results stay reproducible when
// measurements are simulated concurrently.
package noise

import (
	"hash/fnv"
	"math/rand"
	"strconv"
)

// Source draws zero-mean Gaussian samples.
type Source interface {
	Gauss(sigma float64) float64
}

// Gaussian is a seeded Source. It is not safe for concurrent use.
type Gaussian struct {
	rng *rand.Rand
}

func NewGaussian(seed int64) *Gaussian {
	return &Gaussian{rng: rand.New(rand.NewSource(seed))}
}

func (g *Gaussian) Gauss(sigma float64) float64 {
	if sigma == 0 {
		return 0
	}
	return g.rng.NormFloat64() * sigma
}

type zero struct{}

func (zero) Gauss(float64) float64 { return 0 }

// Zero returns a Source with zero variance (noise disabled).
func Zero() Source { return zero{} }

// Derive computes the seed of one acquisition from the session seed, the
// run, the regime name and the acquisition count of that (run, regime).
func Derive(seed int64, run int, regime string, n int) int64 {
	h := fnv.New64a()
	h.Write([]byte(strconv.FormatInt(seed, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(run)))
	h.Write([]byte{0})
	h.Write([]byte(regime))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(n)))
	return int64(h.Sum64())
}
