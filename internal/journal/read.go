package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/plumage/internal/ir"
)

// ReadAll returns every entry ordered by seq.
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) ReadAll(ctx context.Context) ([]Entry, error) {
	return j.query(ctx, `
		SELECT id, seq, op, collection, doc_id, item, metadata, recorded_at
		FROM entries
		ORDER BY seq ASC
	`)
}

// ReadDocument returns the history of one document ordered by seq.
func (j *Journal) ReadDocument(ctx context.Context, collection, docID string) ([]Entry, error) {
	return j.query(ctx, `
		SELECT id, seq, op, collection, doc_id, item, metadata, recorded_at
		FROM entries
		WHERE collection = ? AND doc_id = ?
		ORDER BY seq ASC
	`, collection, docID)
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e        Entry
		op       string
		itemJSON sql.NullString
		metaJSON string
	)
	if err := rows.Scan(&e.ID, &e.Seq, &op, &e.Collection, &e.DocID, &itemJSON, &metaJSON, &e.RecordedAt); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Op = Op(op)

	if itemJSON.Valid {
		item, err := ir.ParseJSON([]byte(itemJSON.String))
		if err != nil {
			return Entry{}, fmt.Errorf("entry %d: item: %w", e.Seq, err)
		}
		e.Item = item
	}
	if err := e.Metadata.UnmarshalJSON([]byte(metaJSON)); err != nil {
		return Entry{}, fmt.Errorf("entry %d: metadata: %w", e.Seq, err)
	}
	return e, nil
}
