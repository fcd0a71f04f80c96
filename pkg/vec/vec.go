// Package vec provides the numeric vector type used for handwriting
// fingerprints and the distance math applied to it.
package vec

import (
	"errors"
	"math"

	"golang.org/x/exp/constraints"
)

// Vector is a fixed-length sequence of floats produced by the fingerprint model.
type Vector []float64

// ErrDimensionMismatch is returned when two vectors of different lengths are compared.
var ErrDimensionMismatch = errors.New("vector dimensions don't match")

// Distance calculates the Euclidean (L2) norm of the element-wise difference
// between a and b.
func Distance[F constraints.Float](a, b []F) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum), nil
}

// Magnitude calculates the Euclidean length (L2 norm) of v.
func Magnitude[F constraints.Float](v []F) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	return math.Sqrt(sum)
}

// Dimensions returns the number of components in v.
func (v Vector) Dimensions() int {
	return len(v)
}

// Clone returns a copy of v that does not share its backing array.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
