package bruteforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sqlite-lof/distance"
	"github.com/viant/sqlite-lof/index"
)

func line() ([]string, [][]float64) {
	return []string{"a", "b", "c", "d", "e"}, [][]float64{{0}, {1}, {3}, {6}, {10}}
}

func TestBuild_Errors(t *testing.T) {
	idx := &Index{}
	require.Error(t, idx.Build([]string{"a"}, nil))

	err := idx.Build([]string{"a", "b"}, [][]float64{{1, 2}, {1}})
	require.ErrorIs(t, err, index.ErrDimension)
	assert.Contains(t, err.Error(), `"b"`)

	require.NoError(t, idx.Build(nil, nil))
	assert.Equal(t, 0, idx.Len())
	hits, err := idx.Query([]float64{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestKNearest(t *testing.T) {
	ids, vecs := line()
	idx, err := New(ids, vecs)
	require.NoError(t, err)
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, 1, idx.Dim())
	assert.Equal(t, "c", idx.ID(2))

	hits, err := idx.KNearest(2, 2)
	require.NoError(t, err)
	assert.Equal(t, []index.Neighbor{{Index: 1, Distance: 2}, {Index: 0, Distance: 3}}, hits)

	for n := range vecs {
		for k := 1; k < len(vecs); k++ {
			hits, err := idx.KNearest(n, k)
			require.NoError(t, err)
			require.Len(t, hits, k)
			kDist := hits[k-1].Distance
			inSet := map[int]bool{}
			for _, h := range hits {
				assert.NotEqual(t, n, h.Index, "self must be excluded")
				assert.LessOrEqual(t, h.Distance, kDist)
				inSet[h.Index] = true
			}
			for j := range vecs {
				if j == n || inSet[j] {
					continue
				}
				d, err := distance.Euclidean(vecs[n], vecs[j])
				require.NoError(t, err)
				assert.GreaterOrEqual(t, d, kDist, "non-neighbor closer than k-distance")
			}
		}
	}
}

func TestKNearest_StableTies(t *testing.T) {
	// b, c and d are all at distance 1 from a; ties keep arena order.
	idx, err := New([]string{"a", "b", "c", "d"}, [][]float64{{0, 0}, {1, 0}, {0, 1}, {-1, 0}})
	require.NoError(t, err)

	hits, err := idx.KNearest(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []index.Neighbor{{Index: 1, Distance: 1}, {Index: 2, Distance: 1}}, hits)

	// duplicates of the query point are neighbors, the point itself is not
	idx, err = New([]string{"x", "y", "z"}, [][]float64{{5}, {5}, {5}})
	require.NoError(t, err)
	hits, err = idx.KNearest(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []index.Neighbor{{Index: 0, Distance: 0}, {Index: 2, Distance: 0}}, hits)
}

func TestKNearest_Errors(t *testing.T) {
	ids, vecs := line()
	idx, err := New(ids, vecs)
	require.NoError(t, err)

	_, err = idx.KNearest(0, 0)
	require.ErrorIs(t, err, index.ErrInvalidK)
	_, err = idx.KNearest(0, 5)
	require.ErrorIs(t, err, index.ErrInvalidK)
	_, err = idx.KNearest(5, 1)
	require.Error(t, err)
	_, err = idx.KNearest(-1, 1)
	require.Error(t, err)
}

func TestQuery(t *testing.T) {
	ids, vecs := line()
	idx, err := New(ids, vecs)
	require.NoError(t, err)

	hits, err := idx.Query([]float64{5}, 2)
	require.NoError(t, err)
	assert.Equal(t, []index.Neighbor{{Index: 3, Distance: 1}, {Index: 2, Distance: 2}}, hits)

	hits, err = idx.Query([]float64{5}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 5)

	_, err = idx.Query([]float64{1, 2}, 1)
	require.ErrorIs(t, err, index.ErrDimension)
}
