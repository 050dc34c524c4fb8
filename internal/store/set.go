package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/listener"
	"github.com/roach88/plumage/internal/relation"
)

// Method is an array update method.
type Method string

const (
	MethodPush    Method = "push"
	MethodUnshift Method = "unshift"
	MethodPop     Method = "pop"
	MethodShift   Method = "shift"
	MethodPull    Method = "pull"
	MethodSplice  Method = "splice"
)

// Update describes an in-place array mutation.
//
// Position is a dotted path to the array inside the item; empty means the
// item itself. For push and unshift the request value is the new element,
// for pull it is the element to remove, and for splice it is the list of
// elements inserted at Start after DeleteCount elements are removed.
type Update struct {
	Method      Method `yaml:"method" json:"method"`
	Position    string `yaml:"position,omitempty" json:"position,omitempty"`
	Start       int    `yaml:"start,omitempty" json:"start,omitempty"`
	DeleteCount int    `yaml:"deleteCount,omitempty" json:"deleteCount,omitempty"`
}

// SetRequest describes a write.
type SetRequest struct {
	Name     string
	Value    any
	ID       string
	PrefixID string
	SuffixID string

	// Merge shallow-merges an object value into the stored one. Arrays and
	// scalars are replaced.
	Merge bool
	// Replace overwrites the stored value.
	Replace bool
	// Update applies an array method to the stored value.
	Update *Update

	// Metadata is merged into the document metadata.
	Metadata map[string]any
	// StopPropagation suppresses every listener not registered with Force.
	StopPropagation bool
}

// SetValue validates and commits a write. It returns the new document, or
// a Result with IsValid false when an array method had nothing to do.
// A returned error means the store is unchanged.
func (s *Store) SetValue(req SetRequest) (*Result, error) {
	c, ok := s.collections[req.Name]
	if !ok {
		return nil, schemaErr(req.Name, KeywordSchema, "collection %q is not declared", req.Name)
	}
	val, err := ir.FromNative(req.Value)
	if err != nil {
		return nil, s.reject(c, req.ID, schemaErr(c.itemPath, KeywordType, "value: %v", err))
	}
	meta, err := metadataOf(req.Metadata)
	if err != nil {
		return nil, s.reject(c, req.ID, schemaErr(c.itemPath, KeywordType, "metadata: %v", err))
	}

	id, err := s.writeID(c, req)
	if err != nil {
		return nil, s.reject(c, req.ID, err)
	}
	var stored ir.Value
	if doc, ok := c.docs[id]; ok {
		stored = doc.Item
	}

	candidate := val
	switch {
	case req.Merge:
		candidate = mergeValues(stored, val)
	case req.Replace:
	case req.Update != nil:
		next, changed, err := applyUpdate(stored, req.Update, val)
		if err != nil {
			if ve, ok := err.(*ValueError); ok {
				ve.Collection, ve.ID = c.name, id
			}
			return nil, s.reject(c, id, err)
		}
		if !changed {
			s.emit(TelemetryDocumentRejected, "set", c.name, id, nil)
			return &Result{ID: id, Item: stored, IsValid: false}, nil
		}
		candidate = next
	}

	vd := s.newValidation(c)
	checked, err := vd.value(candidate, c.itemPath)
	if err != nil {
		return nil, s.reject(c, id, err)
	}
	return s.commit(c, id, checked, meta, vd.edges, true, req.StopPropagation), nil
}

// UnsafeSetValue stores a value without validation. Values that are not
// plain data are kept as opaque host handles. Relations are left as they
// are. Use it only for values that cannot be described by a schema.
func (s *Store) UnsafeSetValue(req SetRequest) (*Result, error) {
	c, ok := s.collections[req.Name]
	if !ok {
		return nil, schemaErr(req.Name, KeywordSchema, "collection %q is not declared", req.Name)
	}
	meta, err := metadataOf(req.Metadata)
	if err != nil {
		return nil, schemaErr(c.itemPath, KeywordType, "metadata: %v", err)
	}
	id, err := s.writeID(c, req)
	if err != nil {
		return nil, err
	}
	val := ir.Wrap(req.Value)
	if req.Merge {
		if doc, ok := c.docs[id]; ok {
			val = mergeValues(doc.Item, val)
		}
	}
	return s.commit(c, id, val, meta, nil, false, req.StopPropagation), nil
}

// writeID picks the document a write goes to. Singletons always use the
// empty ID. In a collection, merge, replace and update need an ID; a plain
// insert without one gets a generated ID.
func (s *Store) writeID(c *collection, req SetRequest) (string, error) {
	if !c.isCollection() {
		return "", nil
	}
	if req.ID == "" && (req.Merge || req.Replace || req.Update != nil) {
		return "", &ValueError{
			Code:       ErrCodeMissingID,
			Collection: c.name,
			Message:    "merge, replace and update need a document ID",
		}
	}
	opts := IDOptions{ID: req.ID, PrefixID: req.PrefixID, SuffixID: req.SuffixID}
	if id, ok := s.lookupID(c, opts); ok {
		return id, nil
	}
	return s.ResolveID(c.name, opts)
}

func mergeValues(stored, next ir.Value) ir.Value {
	old, ok := stored.(ir.Object)
	if !ok {
		return next
	}
	patch, ok := next.(ir.Object)
	if !ok {
		return next
	}
	return old.Merge(patch)
}

// applyUpdate runs u on a copy of the array at u.Position inside stored.
// It reports changed false when pop, shift or pull found nothing to remove.
func applyUpdate(stored ir.Value, u *Update, val ir.Value) (ir.Value, bool, error) {
	switch u.Method {
	case MethodPush, MethodUnshift, MethodPop, MethodShift, MethodPull, MethodSplice:
	default:
		return nil, false, &ValueError{Code: ErrCodeUnknownMethod, Message: fmt.Sprintf("unknown update method %q", u.Method)}
	}

	var target ir.Value = ir.Array{}
	if stored != nil {
		target = stored
	}
	if u.Position != "" {
		v, ok := ir.Lookup(stored, u.Position)
		if !ok {
			return nil, false, &ValueError{Code: ErrCodeUnknownPosition, Message: fmt.Sprintf("position %q does not exist", u.Position)}
		}
		target = v
	}
	arr, ok := target.(ir.Array)
	if !ok {
		return nil, false, &ValueError{Code: ErrCodeNotAnArray, Message: fmt.Sprintf("%s needs an array, found %s", u.Method, ir.KindOf(target))}
	}

	switch u.Method {
	case MethodPush:
		arr = arr.Append(val)
	case MethodUnshift:
		arr = arr.Prepend(val)
	case MethodPop:
		if arr.Len() == 0 {
			return nil, false, nil
		}
		arr, _ = arr.Splice(arr.Len()-1, 1)
	case MethodShift:
		if arr.Len() == 0 {
			return nil, false, nil
		}
		arr, _ = arr.Splice(0, 1)
	case MethodPull:
		i := arr.Index(val)
		if i < 0 {
			return nil, false, nil
		}
		arr, _ = arr.Splice(i, 1)
	case MethodSplice:
		var insert []ir.Value
		switch v := val.(type) {
		case ir.Array:
			insert = v.Values()
		case ir.Null:
		default:
			insert = []ir.Value{v}
		}
		arr, _ = arr.Splice(u.Start, u.DeleteCount, insert...)
	}

	if u.Position == "" {
		return arr, true, nil
	}
	out, err := ir.SetPath(stored, u.Position, arr)
	if err != nil {
		return nil, false, &ValueError{Code: ErrCodeUnknownPosition, Message: err.Error()}
	}
	return out, true, nil
}

func metadataOf(m map[string]any) (ir.Object, error) {
	if len(m) == 0 {
		return ir.Object{}, nil
	}
	v, err := ir.FromNative(m)
	if err != nil {
		return ir.Object{}, err
	}
	return v.(ir.Object), nil
}

// commit swaps a validated value into the live table, keeping the previous
// snapshot, then notifies listeners.
func (s *Store) commit(c *collection, id string, item ir.Value, extra ir.Object, edges []relation.Ref, track, stop bool) *Result {
	now := ir.Number(s.now().UnixMilli())
	var (
		previous *Snapshot
		prevItem ir.Value
		meta     = ir.Object{}
		created  ir.Value = now
		version  ir.Number
	)
	if prev, ok := c.docs[id]; ok {
		previous = &Snapshot{Item: prev.Item, Metadata: prev.Metadata}
		prevItem = prev.Item
		meta = prev.Metadata
		if v, ok := prev.Metadata.Get("createdAt"); ok {
			created = v
		}
		if v, ok := prev.Metadata.Get("version"); ok {
			version, _ = v.(ir.Number)
		}
	}
	meta = meta.Merge(extra).
		With("createdAt", created).
		With("updatedAt", now).
		With("version", version+1)
	if s.userID != "" {
		meta = meta.With("userId", ir.String(s.userID))
	}

	doc := &Document{ID: id, Item: item, Metadata: meta, Previous: previous}
	c.put(doc)
	if track {
		s.relations.Replace(relation.Ref{Collection: c.name, ID: id}, edges)
	}

	s.logger.Debug("document set",
		zap.String("collection", c.name),
		zap.String("id", id),
		zap.Int("relations", len(edges)))
	s.emit(TelemetryDocumentSet, "set", c.name, id, nil)

	res := resultOf(doc)
	s.dispatch(listener.Notification{
		Collection: c.name,
		Event:      listener.EventUpdate,
		ID:         id,
		Item:       item,
		Metadata:   meta,
		Previous:   prevItem,
	}, stop)
	return res
}

// dispatch fires listeners. Handler failures are already logged by the
// registry; they do not undo the committed change.
func (s *Store) dispatch(n listener.Notification, stop bool) {
	if err := s.listeners.Dispatch(n, stop); err != nil {
		s.emit(TelemetryListenerFailed, string(n.Event), n.Collection, n.ID, err)
	}
}

func (s *Store) reject(c *collection, id string, err error) error {
	s.logger.Debug("write rejected",
		zap.String("collection", c.name),
		zap.String("id", id),
		zap.Error(err))
	s.emit(TelemetryDocumentRejected, "set", c.name, id, err)
	return err
}
