package journal

import (
	"context"
	"fmt"

	"github.com/roach88/plumage/internal/ir"
)

// Op is the kind of change an entry records.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Entry is one recorded change.
type Entry struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Op         Op        `json:"op"`
	Collection string    `json:"collection"`
	DocID      string    `json:"docId"`
	Item       ir.Value  `json:"item,omitempty"`
	Metadata   ir.Object `json:"metadata"`
	RecordedAt int64     `json:"recordedAt"`
}

// Append records a change under the next sequence number.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; a duplicate entry does
// not advance the sequence.
//
// Item and metadata are serialized to canonical JSON per RFC 8785. Items
// holding opaque host handles fail with ir.ErrOpaque.
func (j *Journal) Append(ctx context.Context, op Op, collection, docID string, item ir.Value, metadata ir.Object) (Entry, error) {
	var itemJSON any
	if op == OpSet {
		data, err := ir.MarshalCanonical(item)
		if err != nil {
			return Entry{}, fmt.Errorf("append entry: %w", err)
		}
		itemJSON = string(data)
	}
	metaJSON, err := ir.MarshalCanonical(metadata)
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}

	seq := j.seq + 1
	id, err := ir.JournalEntryID(string(op), collection, docID, item, seq)
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}
	recordedAt := j.now().UnixMilli()

	result, err := j.db.ExecContext(ctx, `
		INSERT INTO entries
		(id, seq, op, collection, doc_id, item, metadata, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		seq,
		string(op),
		collection,
		docID,
		itemJSON,
		string(metaJSON),
		recordedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		j.seq = seq
	}

	return Entry{
		ID:         id,
		Seq:        seq,
		Op:         op,
		Collection: collection,
		DocID:      docID,
		Item:       item,
		Metadata:   metadata,
		RecordedAt: recordedAt,
	}, nil
}
