// Package lofadmin exposes the lof engine as a SQLite virtual table.
//
//	CREATE VIRTUAL TABLE outliers USING lof_scores(k=5);
//	SELECT id, label, lof FROM outliers WHERE source MATCH 'records' ORDER BY rank;
//
// The MATCH value names a records table (see package record). Each query
// loads that table, scores every record and returns one row per record in
// ranked order, most anomalous first.
package lofadmin
