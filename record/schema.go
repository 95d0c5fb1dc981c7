package record

import (
	"database/sql"
	"fmt"
	"regexp"
)

// DefaultTable is the records table used when no name is given.
const DefaultTable = "records"

const recordsSchema = `
CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    label TEXT,
    features BLOB
);
`

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTable reports whether name can be interpolated into SQL as a
// (optionally schema-qualified) table name.
func ValidateTable(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("record: invalid table name %q", name)
	}
	return nil
}

// EnsureSchema creates the records table in the provided database if it does
// not already exist.
func EnsureSchema(db *sql.DB, table string) error {
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateTable(table); err != nil {
		return err
	}
	_, err := db.Exec(fmt.Sprintf(recordsSchema, table))
	return err
}
