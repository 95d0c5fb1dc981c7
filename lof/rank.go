package lof

import (
	"cmp"
	"slices"
)

// Rank returns a copy of scores sorted by LOF descending. The sort is stable,
// so records with equal scores keep their input order, and ranking an
// already ranked slice returns the same order. NaN scores rank last.
func Rank(scores []Score) []Score {
	out := slices.Clone(scores)
	// cmp.Compare orders NaN below every number
	slices.SortStableFunc(out, func(a, b Score) int { return cmp.Compare(b.LOF, a.LOF) })
	return out
}
