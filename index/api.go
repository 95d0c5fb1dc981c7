package index

import "errors"

var (
	// ErrDimension is returned when vectors of an arena do not share the
	// same dimensionality, or a query does not match it.
	ErrDimension = errors.New("index: dimension mismatch")

	// ErrInvalidK is returned when k is outside [1, Len()-1].
	ErrInvalidK = errors.New("index: invalid k")
)

// Neighbor is a single kNN hit: the arena position of the neighbor and its
// distance from the query.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index defines an exact vector index over an arena of vectors.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length and all vectors the same
	// dimensionality.
	Build(ids []string, vectors [][]float64) error

	// Len returns the number of indexed vectors.
	Len() int

	// Dim returns the dimensionality of the indexed vectors.
	Dim() int

	// ID returns the id of the vector at position i.
	ID(i int) string

	// KNearest returns the k nearest other vectors of the vector at
	// position i, ascending by distance. The vector itself is never part
	// of the result.
	KNearest(i, k int) ([]Neighbor, error)

	// Query returns up to k nearest vectors to an arbitrary query vector,
	// ascending by distance. k <= 0 returns all vectors.
	Query(query []float64, k int) ([]Neighbor, error)
}
