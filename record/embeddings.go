package record

import (
	"context"
	"database/sql"
	"fmt"
)

// LoadEmbeddings reads (id, meta, embedding) rows from a sqlite-vec docs or
// shadow table and converts the float32 embeddings into records. The meta
// column becomes the record label. Rows without an embedding are skipped.
func LoadEmbeddings(ctx context.Context, db *sql.DB, table string) ([]Record, error) {
	if db == nil {
		return nil, fmt.Errorf("record: db is nil")
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q := fmt.Sprintf("SELECT id, meta, embedding FROM %s WHERE embedding IS NOT NULL ORDER BY rowid", table)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id   string
			meta sql.NullString
			emb  []byte
		)
		if err := rows.Scan(&id, &meta, &emb); err != nil {
			return nil, err
		}
		if len(emb) == 0 {
			continue
		}
		vec, err := DecodeEmbedding(emb)
		if err != nil {
			return nil, fmt.Errorf("record: %q: %w", id, err)
		}
		features := make([]float64, len(vec))
		for i, v := range vec {
			features[i] = float64(v)
		}
		out = append(out, Record{ID: id, Label: meta.String, Features: features})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
