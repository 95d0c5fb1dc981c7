package record

import (
	"context"
)

// Record is a single immutable input row. Label is informational only: the
// engine never reads it, evaluators do.
type Record struct {
	// ID is the stable, unique identifier of the record.
	ID string

	// Label is an optional class label (e.g. "M" or "B").
	Label string

	// Features is the fixed-length numeric vector. All records of one
	// dataset share the same dimensionality.
	Features []float64
}

// Dim returns the feature dimensionality of the record.
func (r Record) Dim() int { return len(r.Features) }

// Store defines the record source API used by the CLI and the SQL surface.
type Store interface {
	// AddRecords inserts records into the store and returns their ids.
	// Record.ID must be set.
	AddRecords(ctx context.Context, records []Record) ([]string, error)

	// Records returns all records in insertion order.
	Records(ctx context.Context) ([]Record, error)

	// Remove deletes the record with the given ID.
	Remove(ctx context.Context, id string) error
}

// IDs returns the identifiers of records in order.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	return ids
}

// Vectors returns the feature vectors of records in order. The slices are
// shared with the records, not copied.
func Vectors(records []Record) [][]float64 {
	vecs := make([][]float64, len(records))
	for i := range records {
		vecs[i] = records[i].Features
	}
	return vecs
}
