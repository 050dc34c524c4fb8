package store

import (
	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/listener"
	"github.com/roach88/plumage/internal/relation"
)

// DeleteRequest describes a delete.
type DeleteRequest struct {
	Name string
	ID   string

	// Cascade also deletes documents this one referenced once nothing else
	// references them.
	Cascade bool
	// StopPropagation suppresses every listener not registered with Force.
	StopPropagation bool
}

// DeleteResult reports the outcome of a delete.
type DeleteResult struct {
	InUse   bool `json:"inUse"`
	Deleted bool `json:"deleted"`
}

// DeleteValue removes a document. A document still referenced by another
// document is left untouched and reported as in use.
func (s *Store) DeleteValue(req DeleteRequest) (DeleteResult, error) {
	c, ok := s.collections[req.Name]
	if !ok {
		return DeleteResult{}, unknownCollection(req.Name)
	}
	id := ""
	if c.isCollection() {
		found, ok := s.lookupID(c, IDOptions{ID: req.ID})
		if !ok {
			return DeleteResult{}, nil
		}
		id = found
	}
	if _, ok := c.docs[id]; !ok {
		return DeleteResult{}, nil
	}
	if s.inUse(relation.Ref{Collection: c.name, ID: id}) {
		s.logger.Debug("delete refused",
			zap.String("collection", c.name),
			zap.String("id", id))
		return DeleteResult{InUse: true}, nil
	}
	s.remove(c, id, req.Cascade, req.StopPropagation)
	return DeleteResult{Deleted: true}, nil
}

// remove drops the document and its outgoing edges. With cascade, targets
// left unreferenced are removed first, so their delete events fire before
// the root's.
func (s *Store) remove(c *collection, id string, cascade, stop bool) {
	doc := c.docs[id]
	c.remove(id)
	targets := s.relations.RemoveFrom(relation.Ref{Collection: c.name, ID: id})

	if cascade {
		for _, to := range targets {
			target, ok := s.resolveRef(to)
			if !ok {
				continue
			}
			tc := s.collections[to.Collection]
			ref := relation.Ref{Collection: tc.name, ID: target.ID}
			if s.inUse(ref) {
				continue
			}
			s.remove(tc, target.ID, true, stop)
		}
	}

	s.logger.Debug("document deleted",
		zap.String("collection", c.name),
		zap.String("id", id),
		zap.Bool("cascade", cascade))
	s.emit(TelemetryDocumentDelete, "delete", c.name, id, nil)
	s.dispatch(listener.Notification{
		Collection: c.name,
		Event:      listener.EventDelete,
		ID:         id,
		Metadata:   doc.Metadata,
		Previous:   doc.Item,
	}, stop)
}

// inUse reports whether ref is referenced, by its full ID or by its bare
// core.
func (s *Store) inUse(ref relation.Ref) bool {
	if s.relations.InUse(ref) {
		return true
	}
	bare := BareID(ref.ID)
	return bare != ref.ID && s.relations.InUse(relation.Ref{Collection: ref.Collection, ID: bare})
}
