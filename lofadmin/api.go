package lofadmin

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/sqlite-lof/lof"
	"github.com/viant/sqlite-lof/record"
	"modernc.org/sqlite/vtab"
)

// ModuleName is the name used in CREATE VIRTUAL TABLE ... USING.
const ModuleName = "lof_scores"

const idxMatch = 1

// Module implements vtab.Module for lof_scores.
type Module struct {
	db   *sql.DB
	opts []lof.Option
}

// Table is a single lof_scores virtual table instance.
type Table struct {
	db     *sql.DB
	engine *lof.Engine
}

// Cursor iterates the ranked scores of one query.
type Cursor struct {
	table  *Table
	source string
	rows   []lof.Score
	pos    int
}

// Register registers the lof_scores module. Engine options (workers,
// logger, metrics) apply to every table created from it.
//
// The module is installed on the first connection that registers it, so
// lof_scores tables must be created and queried on that same connection
// (pin it with db.Conn). Records are still read through db.
func Register(db *sql.DB, opts ...lof.Option) error {
	if err := vtab.RegisterModule(db, ModuleName, &Module{db: db, opts: opts}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	return nil
}

// Create declares the table schema and configures its engine.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

// Connect attaches to an existing lof_scores table.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *Module) connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("lof_scores: need at least 3 args, got %d", len(args))
	}
	k, err := parseK(args[3:])
	if err != nil {
		return nil, err
	}
	engine, err := lof.New(k, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("lof_scores: %w", err)
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(source TEXT, id TEXT, label TEXT, lof REAL, rank INTEGER)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db, engine: engine}, nil
}

// parseK reads the k=<n> module argument; other arguments are ignored.
func parseK(args []string) (int, error) {
	k := lof.DefaultK
	for _, raw := range args {
		parts := strings.SplitN(strings.TrimSpace(raw), "=", 2)
		if len(parts) != 2 || strings.ToLower(strings.TrimSpace(parts[0])) != "k" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, fmt.Errorf("lof_scores: invalid k %q", parts[1])
		}
		k = n
	}
	return k, nil
}

// BestIndex pushes down MATCH on the source column.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = idxMatch
			break
		}
	}
	return nil
}

// Open allocates a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect releases nothing; the engine holds no per-connection state.
func (t *Table) Disconnect() error { return nil }

// Destroy drops nothing; the scored records table is left untouched.
func (t *Table) Destroy() error { return nil }

// Filter loads the records table named by the MATCH value and scores it.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	_ = idxStr
	c.rows, c.pos, c.source = nil, 0, ""
	if idxNum != idxMatch || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	var source string
	switch v := vals[0].(type) {
	case string:
		source = v
	case []byte:
		source = string(v)
	default:
		return fmt.Errorf("lof_scores: MATCH expects a records table name as TEXT, got %T", vals[0])
	}
	store, err := record.OpenSQLiteStore(c.table.db, source)
	if err != nil {
		return fmt.Errorf("lof_scores: %w", err)
	}
	ctx := context.Background()
	records, err := store.Records(ctx)
	if err != nil {
		return err
	}
	scores, err := c.table.engine.ComputeOutlierScores(ctx, records)
	if err != nil {
		return err
	}
	c.rows, c.source = scores, source
	return nil
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

// Eof reports end-of-rows.
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

// Column returns the value of a column in the current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("lof_scores: Column out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	row := c.rows[c.pos]
	switch col {
	case 0:
		return c.source, nil
	case 1:
		return row.Record.ID, nil
	case 2:
		return row.Record.Label, nil
	case 3:
		return row.LOF, nil
	case 4:
		return int64(c.pos + 1), nil
	}
	return nil, fmt.Errorf("lof_scores: unsupported column %d", col)
}

// Rowid returns the 1-based rank of the current row.
func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }

// Close releases the scored rows.
func (c *Cursor) Close() error {
	c.rows, c.pos = nil, 0
	return nil
}
