package bruteforce

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/viant/sqlite-lof/distance"
	"github.com/viant/sqlite-lof/index"
)

// Index is a brute-force Euclidean vector index.
type Index struct {
	ids  []string
	vecs [][]float64
	dim  int
}

// New returns an index built from ids and vectors.
func New(ids []string, vectors [][]float64) (*Index, error) {
	i := &Index{}
	if err := i.Build(ids, vectors); err != nil {
		return nil, err
	}
	return i, nil
}

// Build loads ids and vectors after checking they share one dimensionality.
// Vectors are referenced, not copied; callers must not mutate them.
func (i *Index) Build(ids []string, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: %w: %q has %d features, want %d", index.ErrDimension, ids[j], len(vectors[j]), dim)
		}
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float64(nil), vectors...)
	i.dim = dim
	return nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.vecs) }

// Dim returns the vector dimensionality.
func (i *Index) Dim() int { return i.dim }

// ID returns the id at position n.
func (i *Index) ID(n int) string { return i.ids[n] }

// KNearest returns the k nearest other vectors of the vector at position n.
func (i *Index) KNearest(n, k int) ([]index.Neighbor, error) {
	if n < 0 || n >= len(i.vecs) {
		return nil, fmt.Errorf("bruteforce: position %d out of range [0,%d)", n, len(i.vecs))
	}
	if k < 1 || k > len(i.vecs)-1 {
		return nil, fmt.Errorf("bruteforce: %w: k=%d with %d vectors", index.ErrInvalidK, k, len(i.vecs))
	}
	candidates := make([]index.Neighbor, 0, len(i.vecs)-1)
	for j := range i.vecs {
		if j == n {
			continue
		}
		d, err := distance.Euclidean(i.vecs[n], i.vecs[j])
		if err != nil {
			return nil, fmt.Errorf("bruteforce: %w", err)
		}
		candidates = append(candidates, index.Neighbor{Index: j, Distance: d})
	}
	sortByDistance(candidates)
	return candidates[:k:k], nil
}

// Query returns up to k nearest vectors to query. k <= 0 returns all.
func (i *Index) Query(query []float64, k int) ([]index.Neighbor, error) {
	if len(i.vecs) == 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("bruteforce: %w: query dim %d != index dim %d", index.ErrDimension, len(query), i.dim)
	}
	hits := make([]index.Neighbor, len(i.vecs))
	for j := range i.vecs {
		d, err := distance.Euclidean(query, i.vecs[j])
		if err != nil {
			return nil, fmt.Errorf("bruteforce: %w", err)
		}
		hits[j] = index.Neighbor{Index: j, Distance: d}
	}
	sortByDistance(hits)
	if k <= 0 || k > len(hits) {
		k = len(hits)
	}
	return hits[:k:k], nil
}

func sortByDistance(hits []index.Neighbor) {
	slices.SortStableFunc(hits, func(a, b index.Neighbor) int { return cmp.Compare(a.Distance, b.Distance) })
}

var _ index.Index = (*Index)(nil)
