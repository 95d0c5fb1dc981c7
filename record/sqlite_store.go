package record

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore is a Store backed by a SQLite table with columns
// (id, label, features). Features are stored as float64 BLOBs.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLiteStore creates a new SQLite-backed Store over table. An empty table
// name selects DefaultTable. The schema is created when missing.
func NewSQLiteStore(db *sql.DB, table string) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("record: db is nil")
	}
	if table == "" {
		table = DefaultTable
	}
	if err := EnsureSchema(db, table); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, table: table}, nil
}

// OpenSQLiteStore wraps an existing table without touching the schema.
func OpenSQLiteStore(db *sql.DB, table string) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("record: db is nil")
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, table: table}, nil
}

// Table returns the name of the backing table.
func (s *SQLiteStore) Table() string { return s.table }

// AddRecords inserts records in a single transaction. Record.ID must be
// non-empty and unique.
func (s *SQLiteStore) AddRecords(ctx context.Context, records []Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(id, label, features) VALUES(?, ?, ?)`, s.table))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("record: Record.ID must be set in AddRecords")
		}
		blob, err := EncodeFeatures(r.Features)
		if err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Label, blob); err != nil {
			return nil, fmt.Errorf("record: insert %q: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Records loads every record in insertion order. All records must share the
// same dimensionality.
func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, label, features FROM %s ORDER BY rowid`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r     Record
			label sql.NullString
			blob  []byte
		)
		if err := rows.Scan(&r.ID, &label, &blob); err != nil {
			return nil, err
		}
		r.Label = label.String
		if r.Features, err = DecodeFeatures(blob); err != nil {
			return nil, fmt.Errorf("record: %q: %w", r.ID, err)
		}
		if len(out) > 0 && len(r.Features) != len(out[0].Features) {
			return nil, fmt.Errorf("record: %q: inconsistent feature dims %d vs %d", r.ID, len(r.Features), len(out[0].Features))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes a record by ID.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("record: Remove called with empty id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id)
	return err
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
