package lof

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sqlite-lof/distance"
	"github.com/viant/sqlite-lof/index"
	"github.com/viant/sqlite-lof/metrics"
	"github.com/viant/sqlite-lof/record"
)

func points(coords ...[]float64) []record.Record {
	out := make([]record.Record, len(coords))
	for i, c := range coords {
		out[i] = record.Record{ID: fmt.Sprintf("p%d", i), Label: "B", Features: c}
	}
	return out
}

func clusterWithOutlier() []record.Record {
	records := points(
		[]float64{0, 0},
		[]float64{0.05, 0},
		[]float64{0, 0.05},
		[]float64{-0.05, 0.02},
		[]float64{0.03, -0.06},
	)
	return append(records, record.Record{ID: "outlier", Label: "M", Features: []float64{100, 100}})
}

func TestNew_InvalidK(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrInvalidK)

	e, err := New(3)
	require.NoError(t, err)
	assert.Equal(t, 3, e.K())
	require.ErrorIs(t, e.Configure(-1), ErrInvalidK)
	assert.Equal(t, 3, e.K(), "failed Configure must keep the previous k")
	require.NoError(t, e.Configure(5))
	assert.Equal(t, 5, e.K())
}

func TestComputeOutlierScores_KNotSmallerThanN(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	e, err := New(3, WithMetrics(c))
	require.NoError(t, err)

	records := points([]float64{0}, []float64{1}, []float64{2})
	scores, err := e.ComputeOutlierScores(context.Background(), records)
	require.ErrorIs(t, err, ErrInvalidK)
	assert.Nil(t, scores)
	assert.Contains(t, err.Error(), "k=3 requires more than 3 records")
	assert.Equal(t, 0.0, testutil.ToFloat64(c.RecordsScored))

	_, err = e.ComputeOutlierScores(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidK)
}

func TestCompute_HandComputed(t *testing.T) {
	e, err := New(2, WithWorkers(1))
	require.NoError(t, err)

	res, err := e.Compute(context.Background(), points([]float64{0}, []float64{1}, []float64{5}))
	require.NoError(t, err)

	assert.Equal(t, []index.Neighbor{{Index: 1, Distance: 1}, {Index: 2, Distance: 5}}, res.Neighbors[0])
	assert.Equal(t, []float64{5, 4, 5}, res.KDistance)
	// reach(p,o) takes the k-distance of the neighbor o
	assert.Equal(t, []float64{4, 5}, res.Reach[0])
	assert.Equal(t, []float64{5, 5}, res.Reach[1])
	assert.Equal(t, []float64{4, 5}, res.Reach[2])

	assert.InDelta(t, 2.0/9, res.LRD[0], 1e-12)
	assert.InDelta(t, 0.2, res.LRD[1], 1e-12)
	assert.InDelta(t, 2.0/9, res.LRD[2], 1e-12)

	assert.InDelta(t, 0.95, res.LOF[0], 1e-12)
	assert.InDelta(t, 10.0/9, res.LOF[1], 1e-12)
	assert.InDelta(t, 0.95, res.LOF[2], 1e-12)
}

func TestCompute_NeighborProperties(t *testing.T) {
	records := points(
		[]float64{0, 0}, []float64{1, 0}, []float64{0, 2}, []float64{3, 3},
		[]float64{-1, -1}, []float64{4, 0}, []float64{0.5, 0.5}, []float64{10, -2},
	)
	for _, k := range []int{1, 3, 7} {
		e, err := New(k, WithWorkers(3))
		require.NoError(t, err)
		res, err := e.Compute(context.Background(), records)
		require.NoError(t, err)

		for p := range records {
			require.Len(t, res.Neighbors[p], k)
			members := map[int]bool{}
			maxDist := 0.0
			for _, o := range res.Neighbors[p] {
				assert.NotEqual(t, p, o.Index, "record is its own neighbor")
				assert.False(t, members[o.Index], "duplicate neighbor")
				members[o.Index] = true
				maxDist = max(maxDist, o.Distance)
			}
			assert.Equal(t, maxDist, res.KDistance[p])
			for q := range records {
				if q == p || members[q] {
					continue
				}
				d, err := distance.Euclidean(records[p].Features, records[q].Features)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, d, res.KDistance[p])
			}
		}
	}
}

func TestComputeOutlierScores_ClusterWithOutlier(t *testing.T) {
	e, err := New(2)
	require.NoError(t, err)

	ranked, err := e.ComputeOutlierScores(context.Background(), clusterWithOutlier())
	require.NoError(t, err)
	require.Len(t, ranked, 6)

	assert.Equal(t, "outlier", ranked[0].Record.ID)
	assert.Greater(t, ranked[0].LOF, 10.0)
	for _, s := range ranked[1:] {
		assert.Less(t, s.LOF*10, ranked[0].LOF, "cluster point %s", s.Record.ID)
	}
}

func TestComputeOutlierScores_RegularSimplex(t *testing.T) {
	// unit basis vectors are pairwise sqrt(2) apart
	records := points(
		[]float64{1, 0, 0, 0},
		[]float64{0, 1, 0, 0},
		[]float64{0, 0, 1, 0},
		[]float64{0, 0, 0, 1},
	)
	for _, k := range []int{1, 2, 3} {
		e, err := New(k)
		require.NoError(t, err)
		ranked, err := e.ComputeOutlierScores(context.Background(), records)
		require.NoError(t, err)
		for _, s := range ranked {
			assert.InDelta(t, 1.0, s.LOF, 1e-12, "k=%d %s", k, s.Record.ID)
		}
	}
}

func TestCompute_IdenticalPoints(t *testing.T) {
	records := make([]record.Record, 10)
	for i := range records {
		records[i] = record.Record{ID: fmt.Sprintf("dup%d", i), Features: []float64{2.5, -1}}
	}
	e, err := New(3)
	require.NoError(t, err)

	for run := 0; run < 3; run++ {
		res, err := e.Compute(context.Background(), records)
		require.NoError(t, err)
		for p := range records {
			assert.Equal(t, 0.0, res.KDistance[p])
			assert.True(t, math.IsInf(res.LRD[p], 1), "lrd must be +Inf")
			assert.True(t, math.IsNaN(res.LOF[p]), "Inf/Inf yields NaN")
		}
		ranked := Rank(res.Scores())
		assert.Equal(t, record.IDs(records), idsOf(ranked), "NaN ties keep input order")
	}
}

func TestCompute_ZeroDensityPropagatesInf(t *testing.T) {
	// the far point's reachability sum overflows to +Inf, so its lrd is 0
	records := points([]float64{0}, []float64{1}, []float64{2}, []float64{math.MaxFloat64})
	e, err := New(2, WithWorkers(1))
	require.NoError(t, err)
	res, err := e.Compute(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.LRD[3])
	assert.True(t, math.IsInf(res.LOF[3], 1))
	for p := 0; p < 3; p++ {
		assert.False(t, math.IsInf(res.LOF[p], 0) || math.IsNaN(res.LOF[p]))
	}
}

func TestComputeOutlierScores_Deterministic(t *testing.T) {
	records := clusterWithOutlier()
	records = append(records, points([]float64{0.01, 0.01}, []float64{0.02, 0.05}, []float64{0.04, 0.04})...)

	sequential, err := New(3, WithWorkers(1))
	require.NoError(t, err)
	concurrent, err := New(3, WithWorkers(8))
	require.NoError(t, err)

	first, err := sequential.ComputeOutlierScores(context.Background(), records)
	require.NoError(t, err)
	second, err := sequential.ComputeOutlierScores(context.Background(), records)
	require.NoError(t, err)
	third, err := concurrent.ComputeOutlierScores(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func TestComputeOutlierScores_ConcurrentCalls(t *testing.T) {
	e, err := New(2, WithWorkers(2))
	require.NoError(t, err)
	want, err := e.ComputeOutlierScores(context.Background(), clusterWithOutlier())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	got := make([][]Score, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = e.ComputeOutlierScores(context.Background(), clusterWithOutlier())
		}()
	}
	wg.Wait()
	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, want, got[i])
	}
}

func TestCompute_ShapeError(t *testing.T) {
	e, err := New(1)
	require.NoError(t, err)
	_, err = e.Compute(context.Background(), points([]float64{0, 0}, []float64{1}, []float64{2, 2}))
	require.ErrorIs(t, err, index.ErrDimension)
}

func TestCompute_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 4} {
		e, err := New(2, WithWorkers(workers))
		require.NoError(t, err)
		res, err := e.Compute(ctx, clusterWithOutlier())
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res)
	}
}

func TestCompute_LoggingAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	e, err := New(2, WithLogger(logger), WithMetrics(c))
	require.NoError(t, err)
	_, err = e.Compute(context.Background(), clusterWithOutlier())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "lof run completed")
	assert.Contains(t, out, `"run_id"`)
	assert.Contains(t, out, `"records":6`)
	for _, phase := range []string{PhaseNeighbors, PhaseReachability, PhaseDensity, PhaseLOF} {
		assert.Contains(t, out, fmt.Sprintf(`"phase":%q`, phase))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues(metrics.StatusOK)))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.RecordsScored))
	n, err := testutil.GatherAndCount(reg, "lof_phase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func idsOf(scores []Score) []string {
	ids := make([]string, len(scores))
	for i, s := range scores {
		ids[i] = s.Record.ID
	}
	return ids
}
