// Package evaluate classifies ranked LOF scores against a threshold and
// measures the result against the records' labels.
package evaluate

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/viant/sqlite-lof/lof"
)

// Outcome labels for a single classified record.
const (
	TruePositive  = "true positive"
	FalsePositive = "false positive"
	FalseNegative = "false negative"
	TrueNegative  = "true negative"
)

// Report holds the confusion counts and derived metrics of one evaluation.
type Report struct {
	Threshold float64
	Positive  string

	TP, FP, TN, FN int

	Precision float64
	Recall    float64
	F1        float64
}

// Evaluate predicts a record as outlier when its LOF exceeds threshold and
// treats records labelled positive as actual outliers. A NaN score never
// exceeds the threshold. Zero denominators yield zero metrics.
func Evaluate(scores []lof.Score, threshold float64, positive string) Report {
	predicted := roaring.New()
	actual := roaring.New()
	for i, s := range scores {
		if s.LOF > threshold {
			predicted.Add(uint32(i))
		}
		if s.Record.Label == positive {
			actual.Add(uint32(i))
		}
	}

	tp := int(predicted.AndCardinality(actual))
	fp := int(predicted.GetCardinality()) - tp
	fn := int(actual.GetCardinality()) - tp
	r := Report{
		Threshold: threshold,
		Positive:  positive,
		TP:        tp,
		FP:        fp,
		FN:        fn,
		TN:        len(scores) - tp - fp - fn,
	}
	r.Precision = ratio(tp, tp+fp)
	r.Recall = ratio(tp, tp+fn)
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

// Outcome classifies a single score with the report's threshold and
// positive label.
func (r Report) Outcome(s lof.Score) string {
	outlier := s.LOF > r.Threshold
	positive := s.Record.Label == r.Positive
	switch {
	case outlier && positive:
		return TruePositive
	case outlier:
		return FalsePositive
	case positive:
		return FalseNegative
	default:
		return TrueNegative
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
