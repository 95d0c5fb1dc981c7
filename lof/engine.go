package lof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/sqlite-lof/index/bruteforce"
	"github.com/viant/sqlite-lof/record"
)

// DefaultK is the neighborhood size used when none is configured.
const DefaultK = 4

// ErrInvalidK is returned when k < 1, or when k is not smaller than the
// number of records passed to a scoring call.
var ErrInvalidK = errors.New("lof: invalid k")

// Engine computes LOF scores. It holds configuration only; every call owns
// its own working set, so an Engine may be shared by goroutines.
type Engine struct {
	mu   sync.RWMutex
	k    int
	opts options
}

// New returns an engine configured with neighborhood size k.
func New(k int, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{opts: o}
	if err := e.Configure(k); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure sets the neighborhood size used by subsequent calls.
func (e *Engine) Configure(k int) error {
	if k < 1 {
		return fmt.Errorf("%w: k=%d, want k >= 1", ErrInvalidK, k)
	}
	e.mu.Lock()
	e.k = k
	e.mu.Unlock()
	return nil
}

// K returns the configured neighborhood size.
func (e *Engine) K() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.k
}

// ComputeOutlierScores scores every record and returns them ranked by LOF,
// most anomalous first. It fails before computing anything when
// k >= len(records).
func (e *Engine) ComputeOutlierScores(ctx context.Context, records []record.Record) ([]Score, error) {
	res, err := e.Compute(ctx, records)
	if err != nil {
		return nil, err
	}
	return Rank(res.Scores()), nil
}

// Compute runs the four phases and returns the per-record phase tables in
// input order.
func (e *Engine) Compute(ctx context.Context, records []record.Record) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	k := e.K()
	n := len(records)
	if k >= n {
		err := fmt.Errorf("%w: k=%d requires more than %d records", ErrInvalidK, k, n)
		e.opts.metrics.ObserveRun(err, n)
		return nil, err
	}

	logger := e.opts.logger.With("run_id", uuid.NewString(), "k", k, "records", n)
	started := time.Now()
	res, err := e.compute(ctx, k, records, logger)
	e.opts.metrics.ObserveRun(err, n)
	if err != nil {
		logger.ErrorContext(ctx, "lof run failed", "error", err)
		return nil, err
	}
	logger.InfoContext(ctx, "lof run completed",
		"workers", e.opts.workers,
		"elapsed", time.Since(started),
	)
	return res, nil
}

func (e *Engine) compute(ctx context.Context, k int, records []record.Record, logger *slog.Logger) (*Result, error) {
	idx, err := bruteforce.New(record.IDs(records), record.Vectors(records))
	if err != nil {
		return nil, fmt.Errorf("lof: %w", err)
	}
	res := newResult(records, k)
	phases := []struct {
		name string
		fn   func(i int) error
	}{
		{PhaseNeighbors, func(i int) error { return res.findNeighbors(idx, i) }},
		{PhaseReachability, res.reachability},
		{PhaseDensity, res.density},
		{PhaseLOF, res.factor},
	}
	for _, p := range phases {
		start := time.Now()
		if err := e.parallel(ctx, len(records), p.fn); err != nil {
			return nil, fmt.Errorf("lof: %s phase: %w", p.name, err)
		}
		elapsed := time.Since(start)
		e.opts.metrics.ObservePhase(p.name, elapsed)
		logger.DebugContext(ctx, "phase completed", "phase", p.name, "elapsed", elapsed)
	}
	return res, nil
}
