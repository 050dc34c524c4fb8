package journal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/store"
)

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Applied int   `json:"applied"`
	LastSeq int64 `json:"lastSeq"`
}

// Replay re-applies every entry to st in seq order. st must already have
// the schemas of the journaled collections registered, and should not have
// this journal attached.
//
// Sets go through full validation so relations are rebuilt; listeners only
// see the writes if they were registered with Force. Metadata timestamps
// reflect the replay, while caller metadata is restored.
func (j *Journal) Replay(ctx context.Context, st *store.Store) (ReplayResult, error) {
	entries, err := j.ReadAll(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	var (
		res     ReplayResult
		pending []Entry
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		deferred, err := apply(st, e)
		if err != nil {
			return res, fmt.Errorf("replay entry %d: %w", e.Seq, err)
		}
		if deferred {
			pending = append(pending, e)
			continue
		}
		res.note(e)
		if pending, err = retry(st, pending, &res); err != nil {
			return res, err
		}
	}
	if len(pending) > 0 {
		e := pending[0]
		return res, fmt.Errorf("replay entry %d: %s/%s is still referenced", e.Seq, e.Collection, e.DocID)
	}

	j.logger.Info("journal replayed",
		zap.Int("applied", res.Applied),
		zap.Int64("last_seq", res.LastSeq))
	return res, nil
}

func (r *ReplayResult) note(e Entry) {
	r.Applied++
	r.LastSeq = max(r.LastSeq, e.Seq)
}

// retry re-applies deferred deletes, keeping those still referenced.
// A cascade journals its targets before the root, so a target's delete
// only goes through once the root's entry has been replayed.
func retry(st *store.Store, pending []Entry, res *ReplayResult) ([]Entry, error) {
	var left []Entry
	for _, e := range pending {
		deferred, err := apply(st, e)
		if err != nil {
			return nil, fmt.Errorf("replay entry %d: %w", e.Seq, err)
		}
		if deferred {
			left = append(left, e)
			continue
		}
		res.note(e)
	}
	return left, nil
}

// reserved metadata keys are recomputed by the store on every write.
var reserved = []string{"createdAt", "updatedAt", "version", "userId"}

// apply replays one entry. It reports deferred when a delete hit a
// document that is still referenced.
func apply(st *store.Store, e Entry) (deferred bool, err error) {
	switch e.Op {
	case OpSet:
		meta := e.Metadata
		for _, k := range reserved {
			meta = meta.Without(k)
		}
		var native map[string]any
		if meta.Len() > 0 {
			native = ir.ToNative(meta).(map[string]any)
		}
		_, err := st.SetValue(store.SetRequest{
			Name:            e.Collection,
			ID:              e.DocID,
			Value:           e.Item,
			Replace:         true,
			Metadata:        native,
			StopPropagation: true,
		})
		return false, err
	case OpDelete:
		res, err := st.DeleteValue(store.DeleteRequest{
			Name:            e.Collection,
			ID:              e.DocID,
			StopPropagation: true,
		})
		if err != nil {
			return false, err
		}
		return res.InUse, nil
	default:
		return false, fmt.Errorf("unknown op %q", e.Op)
	}
}
