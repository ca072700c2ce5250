// Package testutil provides deterministic random data helpers for tests and
// benchmarks.
package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/seekgo/internal/math32"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [-1, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range dst {
		dst[i] = r.rand.Float32()*2 - 1
	}
}

// UniformVectors returns n vectors of the given dimensionality with
// components in [-1, 1).
func (r *RNG) UniformVectors(n, dims int) [][]float32 {
	vectors := make([][]float32, n)

	for i := range vectors {
		vectors[i] = make([]float32, dims)
		r.FillUniform(vectors[i])
	}

	return vectors
}

// UnitVectors returns n L2-normalized vectors of the given dimensionality.
// Vectors that draw near-zero are redrawn, so every result has norm 1.
func (r *RNG) UnitVectors(n, dims int) [][]float32 {
	vectors := r.UniformVectors(n, dims)

	for i := range vectors {
		for !normalize(vectors[i]) {
			r.FillUniform(vectors[i])
		}
	}

	return vectors
}

func normalize(v []float32) bool {
	n := math32.Sqrt(math32.Dot(v, v))
	if n < 1e-10 {
		return false
	}

	math32.ScaleInPlace(v, 1/n)

	return true
}
