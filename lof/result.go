package lof

import (
	"github.com/viant/sqlite-lof/index"
	"github.com/viant/sqlite-lof/record"
	"gonum.org/v1/gonum/floats"
)

// Phase names used in logs and metrics.
const (
	PhaseNeighbors    = "neighbors"
	PhaseReachability = "reachability"
	PhaseDensity      = "density"
	PhaseLOF          = "lof"
)

// Score pairs a record with its LOF score.
type Score struct {
	Record record.Record
	LOF    float64
}

// Result holds the phase tables of one Compute call. Every table is indexed
// by the record's position in Records.
type Result struct {
	K       int
	Records []record.Record

	// Neighbors holds the k nearest other records, ascending by distance.
	Neighbors [][]index.Neighbor
	// KDistance is the distance to the k-th nearest neighbor.
	KDistance []float64
	// Reach[p][j] is the reachability distance from p to Neighbors[p][j].
	Reach [][]float64
	// LRD is the local reachability density.
	LRD []float64
	// LOF is the local outlier factor.
	LOF []float64
}

func newResult(records []record.Record, k int) *Result {
	n := len(records)
	return &Result{
		K:         k,
		Records:   records,
		Neighbors: make([][]index.Neighbor, n),
		KDistance: make([]float64, n),
		Reach:     make([][]float64, n),
		LRD:       make([]float64, n),
		LOF:       make([]float64, n),
	}
}

// Scores returns one Score per record in input order.
func (r *Result) Scores() []Score {
	out := make([]Score, len(r.Records))
	for i := range r.Records {
		out[i] = Score{Record: r.Records[i], LOF: r.LOF[i]}
	}
	return out
}

func (r *Result) findNeighbors(idx index.Index, p int) error {
	hits, err := idx.KNearest(p, r.K)
	if err != nil {
		return err
	}
	r.Neighbors[p] = hits
	r.KDistance[p] = hits[len(hits)-1].Distance
	return nil
}

// reachability reads the k-distance of each neighbor, which the neighbor
// phase computed for that neighbor, not for p.
func (r *Result) reachability(p int) error {
	row := make([]float64, len(r.Neighbors[p]))
	for j, o := range r.Neighbors[p] {
		row[j] = max(r.KDistance[o.Index], o.Distance)
	}
	r.Reach[p] = row
	return nil
}

// density divides by the reachability sum; a zero sum gives +Inf.
func (r *Result) density(p int) error {
	r.LRD[p] = float64(r.K) / floats.Sum(r.Reach[p])
	return nil
}

// factor averages the neighbor-to-self density ratios. Infinite densities
// propagate: Inf/Inf is NaN and x/0 is +Inf.
func (r *Result) factor(p int) error {
	var sum float64
	for _, o := range r.Neighbors[p] {
		sum += r.LRD[o.Index] / r.LRD[p]
	}
	r.LOF[p] = sum / float64(r.K)
	return nil
}
