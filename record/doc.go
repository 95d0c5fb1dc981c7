// Package record defines the input records scored by the lof engine and the
// collaborators that supply them. It includes:
//   - Record model and Store interface
//   - SQLiteStore: durable storage for records in a SQLite table
//   - Schema helpers to create a records table
//   - Feature encoding (BLOB) and sqlite-vec embedding import
//   - CSV loading in the id,label,features... layout
package record
