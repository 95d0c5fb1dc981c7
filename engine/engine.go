package engine

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// BusyTimeoutMillis is applied to file databases so that scoring reads issued
// from inside a virtual table query wait for concurrent writers.
const BusyTimeoutMillis = 5000

// Open opens a records database. dsn is a file path ("./records.sqlite"),
// a "file:" URI or ":memory:". File databases get a busy timeout unless the
// DSN already sets one.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("engine: empty dsn")
	}
	return sql.Open(DriverName, withBusyTimeout(dsn))
}

func withBusyTimeout(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(" + strconv.Itoa(BusyTimeoutMillis) + ")"
}
