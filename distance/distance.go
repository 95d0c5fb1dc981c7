package distance

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch is returned when two vectors have different lengths.
var ErrDimensionMismatch = errors.New("distance: dimension mismatch")

// Euclidean computes the Euclidean (L2) distance between two vectors. It
// returns an error if the vectors have different lengths.
func Euclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, 2), nil
}
