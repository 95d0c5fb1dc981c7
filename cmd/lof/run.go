package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viant/sqlite-lof/config"
	"github.com/viant/sqlite-lof/engine"
	"github.com/viant/sqlite-lof/evaluate"
	"github.com/viant/sqlite-lof/index/bruteforce"
	"github.com/viant/sqlite-lof/internal/logging"
	"github.com/viant/sqlite-lof/lof"
	"github.com/viant/sqlite-lof/metrics"
	"github.com/viant/sqlite-lof/record"
)

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, explain, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "lof: %v\n", err)
		return 1
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "lof: %v\n", err)
		return 1
	}
	if err := execute(ctx, cfg, explain, stdout, logger); err != nil {
		logger.Error("lof failed", "error", err)
		return 1
	}
	return 0
}

// parseFlags loads the optional config file and applies the flags that were
// set explicitly on top of it.
func parseFlags(args []string, stderr io.Writer) (config.Config, string, error) {
	fs := flag.NewFlagSet("lof", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	data := fs.String("data", "", "CSV file with rows id,label,f1..fD")
	header := fs.Bool("header", false, "CSV file has a header row")
	sqlitePath := fs.String("sqlite", "", "SQLite database holding the records")
	table := fs.String("table", "", "records table within -sqlite")
	embeddings := fs.String("embeddings", "", "sqlite-vec docs table within -sqlite to score instead of -table")
	k := fs.Int("k", 0, "neighborhood size; 0 sweeps over the configured sizes")
	threshold := fs.Float64("threshold", 0, "records with LOF above threshold are predicted outliers")
	positive := fs.String("positive", "", "label of actual outliers")
	workers := fs.Int("workers", 0, "per-phase parallelism (0 = GOMAXPROCS)")
	sampleLabel := fs.String("sample-label", "", "label to down-sample (defaults to -positive)")
	sampleRate := fs.Float64("sample-rate", 1, "probability of keeping a record with the sampled label; 1 keeps every row, 0.1 reproduces the usual WDBC down-sampling of positives")
	seed := fs.Uint64("seed", 0, "sampling seed (0 = random)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "text or json")
	explain := fs.String("explain", "", "print the nearest neighbors of the record with this id")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, "", err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, "", err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Source.CSV = *data
		case "header":
			cfg.Source.Header = *header
		case "sqlite":
			cfg.Source.SQLite = *sqlitePath
		case "table":
			cfg.Source.Table = *table
		case "embeddings":
			cfg.Source.Embeddings = *embeddings
		case "k":
			cfg.K = *k
		case "threshold":
			cfg.Threshold = *threshold
		case "positive":
			cfg.PositiveLabel = *positive
		case "workers":
			cfg.Workers = *workers
		case "sample-label":
			cfg.Sample.Label = *sampleLabel
		case "sample-rate":
			cfg.Sample.Rate = *sampleRate
		case "seed":
			cfg.Sample.Seed = *seed
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		}
	})
	if cfg.Sample.Rate < 1 && cfg.Sample.Label == "" {
		cfg.Sample.Label = cfg.PositiveLabel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, "", err
	}
	if *explain != "" && cfg.K == 0 {
		return cfg, "", errors.New("-explain requires -k")
	}
	return cfg, *explain, nil
}

func execute(ctx context.Context, cfg config.Config, explain string, stdout io.Writer, logger *slog.Logger) error {
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var db *sql.DB
	if cfg.Source.SQLite != "" {
		// functions must be registered before the connection is opened
		if err := engine.RegisterDistanceFunctions(nil); err != nil {
			return err
		}
		var err error
		if db, err = engine.Open(cfg.Source.SQLite); err != nil {
			return err
		}
		defer db.Close()
	}

	records, err := loadRecords(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	logger.Info("records loaded", "records", len(records))

	ks := cfg.Ks()
	scorer, err := lof.New(ks[0],
		lof.WithWorkers(cfg.Workers),
		lof.WithLogger(logger),
		lof.WithMetrics(metrics.Default),
	)
	if err != nil {
		return err
	}
	if cfg.K > 0 {
		scores, err := scorer.ComputeOutlierScores(ctx, records)
		if err != nil {
			return err
		}
		printLong(stdout, scores, evaluate.Evaluate(scores, cfg.Threshold, cfg.PositiveLabel))
		if explain != "" {
			return printExplain(ctx, stdout, cfg, db, records, explain)
		}
		return nil
	}
	for _, k := range ks {
		if err := scorer.Configure(k); err != nil {
			return err
		}
		scores, err := scorer.ComputeOutlierScores(ctx, records)
		if err != nil {
			return err
		}
		report := evaluate.Evaluate(scores, cfg.Threshold, cfg.PositiveLabel)
		fmt.Fprintf(stdout, "k %d f1 %.3f (recall %.3f precision %.3f)\n", k, report.F1, report.Recall, report.Precision)
	}
	return nil
}

func loadRecords(ctx context.Context, cfg config.Config, db *sql.DB, logger *slog.Logger) ([]record.Record, error) {
	if cfg.Source.CSV != "" {
		var opts []record.CSVOption
		if cfg.Source.Header {
			opts = append(opts, record.WithHeader())
		}
		if cfg.Sample.Label != "" && cfg.Sample.Rate < 1 {
			seed := cfg.Sample.Seed
			if seed == 0 {
				seed = rand.Uint64()
			}
			logger.Info("sampling records", "label", cfg.Sample.Label, "rate", cfg.Sample.Rate, "seed", seed)
			opts = append(opts, record.WithSampling(cfg.Sample.Label, cfg.Sample.Rate, rand.New(rand.NewPCG(seed, seed))))
		}
		return record.ReadCSVFile(cfg.Source.CSV, opts...)
	}
	if cfg.Source.Embeddings != "" {
		return record.LoadEmbeddings(ctx, db, cfg.Source.Embeddings)
	}
	store, err := record.OpenSQLiteStore(db, cfg.Source.Table)
	if err != nil {
		return nil, err
	}
	return store.Records(ctx)
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func printLong(w io.Writer, scores []lof.Score, report evaluate.Report) {
	for _, s := range scores {
		fmt.Fprintf(w, "sample %s %s lof= %.4f %s\n", s.Record.ID, s.Record.Label, s.LOF, report.Outcome(s))
	}
	fmt.Fprintf(w, "threshold %.3f positive %s\n", report.Threshold, report.Positive)
	fmt.Fprintf(w, "tp %d fp %d tn %d fn %d\n", report.TP, report.FP, report.TN, report.FN)
	fmt.Fprintf(w, "f1 %.3f (recall %.3f precision %.3f)\n", report.F1, report.Recall, report.Precision)
}

type neighbor struct {
	id, label string
	dist      float64
}

// printExplain lists the k nearest other records of id. SQLite sources are
// answered in SQL with lof_l2 or vec_l2; CSV sources use the in-memory index.
func printExplain(ctx context.Context, w io.Writer, cfg config.Config, db *sql.DB, records []record.Record, id string) error {
	self := slices.IndexFunc(records, func(r record.Record) bool { return r.ID == id })
	if self < 0 {
		return fmt.Errorf("explain: no record with id %q", id)
	}
	var (
		hits []neighbor
		err  error
	)
	switch {
	case db != nil && cfg.Source.Embeddings != "":
		hits, err = sqlNeighbors(ctx, db, embeddingNeighborsSQL, cfg.Source.Embeddings, id, cfg.K)
	case db != nil:
		hits, err = sqlNeighbors(ctx, db, featureNeighborsSQL, cfg.Source.Table, id, cfg.K)
	default:
		hits, err = indexNeighbors(records, self, cfg.K)
	}
	if err != nil {
		return fmt.Errorf("explain: %w", err)
	}
	fmt.Fprintf(w, "neighbors of %s\n", id)
	for _, h := range hits {
		fmt.Fprintf(w, "  %s %s dist= %.4f\n", h.id, h.label, h.dist)
	}
	return nil
}

// Ties break on rowid, the order records are loaded in.
const (
	featureNeighborsSQL = `SELECT b.id, COALESCE(b.label, ''), lof_l2(a.features, b.features) AS d
FROM %[1]s a JOIN %[1]s b ON b.rowid != a.rowid
WHERE a.id = ? ORDER BY d, b.rowid LIMIT ?`
	embeddingNeighborsSQL = `SELECT b.id, COALESCE(b.meta, ''), vec_l2(a.embedding, b.embedding) AS d
FROM %[1]s a JOIN %[1]s b ON b.rowid != a.rowid
WHERE a.id = ? AND b.embedding IS NOT NULL ORDER BY d, b.rowid LIMIT ?`
)

func sqlNeighbors(ctx context.Context, db *sql.DB, query, table, id string, k int) ([]neighbor, error) {
	if err := record.ValidateTable(table); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(query, table), id, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []neighbor
	for rows.Next() {
		var n neighbor
		if err := rows.Scan(&n.id, &n.label, &n.dist); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func indexNeighbors(records []record.Record, self, k int) ([]neighbor, error) {
	idx, err := bruteforce.New(record.IDs(records), record.Vectors(records))
	if err != nil {
		return nil, err
	}
	hits, err := idx.Query(records[self].Features, k+1)
	if err != nil {
		return nil, err
	}
	out := make([]neighbor, 0, k)
	for _, h := range hits {
		if h.Index == self || len(out) == k {
			continue
		}
		out = append(out, neighbor{id: idx.ID(h.Index), label: records[h.Index].Label, dist: h.Distance})
	}
	return out, nil
}
