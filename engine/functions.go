package engine

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viant/sqlite-lof/distance"
	"github.com/viant/sqlite-lof/record"
	"github.com/viant/vec/search"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// RegisterDistanceFunctions registers lof_l2 and vec_l2 with the driver so
// they are available on new connections opened after this call.
//
//   - lof_l2(a, b): Euclidean distance between two float64 feature BLOBs
//     as stored in a records table.
//   - vec_l2(a, b): Euclidean distance between two float32 embedding BLOBs
//     as stored by sqlite-vec.
//
// NULL or empty BLOB arguments yield NULL.
//
// Existing open connections will not see new functions.
func RegisterDistanceFunctions(_ *sql.DB) error {
	var err error
	registerOnce.Do(func() {
		if err = sqlite.RegisterDeterministicScalarFunction("lof_l2", 2, lofL2Impl); err != nil {
			return
		}
		err = sqlite.RegisterDeterministicScalarFunction("vec_l2", 2, vecL2Impl)
	})
	return err
}

func lofL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("lof_l2: expected 2 arguments, got %d", len(args))
	}
	a, err := asFeatures(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asFeatures(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	return distance.Euclidean(a, b)
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_l2: expected 2 arguments, got %d", len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("vec_l2: %w: %d vs %d", distance.ErrDimensionMismatch, len(a), len(b))
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

func asFeatures(arg driver.Value) ([]float64, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return record.DecodeFeatures(v)
	default:
		return nil, fmt.Errorf("lof_l2: unsupported argument type %T for features; want BLOB", arg)
	}
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return record.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec_l2: unsupported argument type %T for embedding; want BLOB", arg)
	}
}
