// Package distance provides the public API for vector distance calculations.
// All kernels are straight-line loops over equal-length float32 buffers,
// written to be auto-vectorizable rather than hand-tuned with platform
// intrinsics, for portability.
package distance

import (
	"fmt"
	"slices"

	"github.com/hupe1980/seekgo/internal/math32"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return math32.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return math32.SquaredL2(a, b)
}

// Euclidean calculates the L2 (Euclidean) distance between two vectors.
func Euclidean(a, b []float32) float32 {
	return math32.Sqrt(math32.SquaredL2(a, b))
}

// Norm calculates the L2 norm (magnitude) of v.
func Norm(v []float32) float32 {
	return math32.Sqrt(math32.Dot(v, v))
}

// Cosine calculates the cosine similarity between two vectors.
// Returns 0 if either vector has near-zero norm, never NaN or Inf.
func Cosine(a, b []float32) float32 {
	normA := Norm(a)
	normB := Norm(b)
	if normA < normEpsilon || normB < normEpsilon {
		return 0
	}
	return math32.Dot(a, b) / (normA * normB)
}

// CosineDistance calculates 1 - Cosine(a, b). For pre-normalized vectors this
// equals 1 - Dot(a, b) and lies in [0, 2].
func CosineDistance(a, b []float32) float32 {
	return 1 - Cosine(a, b)
}

// DotDistance calculates 1 - Dot(a, b). For unit vectors it equals
// CosineDistance without the norm divisions and lies in [0, 2]; for
// unnormalized vectors it is not a metric.
func DotDistance(a, b []float32) float32 {
	return 1 - math32.Dot(a, b)
}

// normEpsilon is the norm below which a vector is treated as zero.
const normEpsilon = 1e-10

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false (leaving v untouched) if v has near-zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	n := Norm(v)
	if n < normEpsilon {
		return false
	}
	math32.ScaleInPlace(v, 1/n)
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has near-zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricCosine
	MetricDot
	MetricEuclidean
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	case MetricEuclidean:
		return "Euclidean"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric. All returned
// functions order ascending, nearest first; MetricDot therefore maps to
// DotDistance rather than the raw similarity.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2, nil
	case MetricCosine:
		return CosineDistance, nil
	case MetricDot:
		return DotDistance, nil
	case MetricEuclidean:
		return Euclidean, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
