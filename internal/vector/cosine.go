package vector

import (
	"math"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

var (
	// ErrZeroVector is returned when a vector has zero magnitude (or is empty),
	// so no similarity is defined.
	ErrZeroVector = jerrors.New(jerrors.ErrCodeZeroVector, "cosine similarity undefined for zero vector", nil)

	// ErrDimensionMismatch is returned for vectors of different lengths.
	ErrDimensionMismatch = jerrors.New(jerrors.ErrCodeDimensionMismatch, "vectors have different dimensions", nil)
)

// CosineSimilarity returns dot(a,b) / (|a| * |b|), clamped to [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push identical vectors just past 1
	return math.Max(-1, math.Min(1, sim)), nil
}
