package journal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/listener"
	"github.com/roach88/plumage/internal/store"
)

type subscription struct {
	collection string
	event      listener.Event
	handlerID  string
}

// Attach records every update and delete of every collection declared in
// st at the time of the call. The returned function detaches the journal.
//
// Handlers are registered with Force, so writes that stop propagation are
// journaled as well.
func (j *Journal) Attach(ctx context.Context, st *store.Store) (func(), error) {
	var subs []subscription
	detach := func() {
		for _, sub := range subs {
			if _, err := st.DeleteListener(sub.collection, sub.event, sub.handlerID); err != nil {
				j.logger.Warn("detach journal", zap.String("collection", sub.collection), zap.Error(err))
			}
		}
	}

	for _, name := range st.Collections() {
		for _, event := range []listener.Event{listener.EventUpdate, listener.EventDelete} {
			id, err := st.AddListener(store.ListenRequest{
				Name:       name,
				Event:      event,
				Force:      true,
				CaptureAll: true,
				Handler:    j.record(ctx),
			})
			if err != nil {
				detach()
				return nil, fmt.Errorf("attach journal to %s: %w", name, err)
			}
			subs = append(subs, subscription{collection: name, event: event, handlerID: id})
		}
	}

	j.logger.Debug("journal attached", zap.Int("listeners", len(subs)))
	return detach, nil
}

func (j *Journal) record(ctx context.Context) listener.Handler {
	return func(n listener.Notification) error {
		op, item := OpSet, n.Item
		if n.Event == listener.EventDelete {
			op, item = OpDelete, nil
		}

		entry, err := j.Append(ctx, op, n.Collection, n.ID, item, n.Metadata)
		if errors.Is(err, ir.ErrOpaque) {
			j.logger.Warn("skipping opaque value",
				zap.String("collection", n.Collection),
				zap.String("id", n.ID))
			return nil
		}
		if err != nil {
			return err
		}

		j.logger.Debug("journaled",
			zap.Int64("seq", entry.Seq),
			zap.String("op", string(op)),
			zap.String("collection", n.Collection),
			zap.String("id", n.ID))
		return nil
	}
}
