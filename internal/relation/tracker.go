// Package relation tracks directed references between documents and their
// inverse, so the store can refuse or cascade deletes.
package relation

import "slices"

// Ref addresses one document.
type Ref struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// Key returns "collection/id".
func (r Ref) Key() string { return r.Collection + "/" + r.ID }

func (r Ref) String() string { return r.Key() }

// Tracker holds two adjacency maps kept in lock-step:
// refs[A] lists what A references, usedBy[B] lists who references B.
// Both sides are ordered sets. A key is removed as soon as its set empties.
type Tracker struct {
	refs   map[Ref][]Ref
	usedBy map[Ref][]Ref
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		refs:   make(map[Ref][]Ref),
		usedBy: make(map[Ref][]Ref),
	}
}

// Link records from -> to. Linking twice is a no-op.
func (t *Tracker) Link(from, to Ref) {
	t.refs[from] = addRef(t.refs[from], to)
	t.usedBy[to] = addRef(t.usedBy[to], from)
}

// Unlink removes from -> to from both directions.
func (t *Tracker) Unlink(from, to Ref) {
	setOrEvict(t.refs, from, removeRef(t.refs[from], to))
	setOrEvict(t.usedBy, to, removeRef(t.usedBy[to], from))
}

// References returns what from links to, in link order.
func (t *Tracker) References(from Ref) []Ref {
	return slices.Clone(t.refs[from])
}

// ReferencedBy returns who links to to, in link order.
func (t *Tracker) ReferencedBy(to Ref) []Ref {
	return slices.Clone(t.usedBy[to])
}

// InUse reports whether any other document references to.
// A document referencing itself does not keep itself alive.
func (t *Tracker) InUse(to Ref) bool {
	for _, from := range t.usedBy[to] {
		if from != to {
			return true
		}
	}
	return false
}

// RemoveFrom drops every outgoing edge of from and returns the targets.
func (t *Tracker) RemoveFrom(from Ref) []Ref {
	targets := t.refs[from]
	for _, to := range targets {
		setOrEvict(t.usedBy, to, removeRef(t.usedBy[to], from))
	}
	delete(t.refs, from)
	return targets
}

// Replace sets the outgoing edges of from to exactly next, unlinking
// targets that disappeared and linking new ones. Existing order is kept
// for surviving edges. It returns the targets that were unlinked.
func (t *Tracker) Replace(from Ref, next []Ref) []Ref {
	var removed []Ref
	for _, to := range t.refs[from] {
		if !slices.Contains(next, to) {
			removed = append(removed, to)
		}
	}
	for _, to := range removed {
		t.Unlink(from, to)
	}
	for _, to := range next {
		t.Link(from, to)
	}
	return removed
}

// Len returns the number of documents with outgoing edges.
func (t *Tracker) Len() int { return len(t.refs) }

// Reset removes every edge.
func (t *Tracker) Reset() {
	t.refs = make(map[Ref][]Ref)
	t.usedBy = make(map[Ref][]Ref)
}

func addRef(set []Ref, r Ref) []Ref {
	if slices.Contains(set, r) {
		return set
	}
	return append(set, r)
}

func removeRef(set []Ref, r Ref) []Ref {
	i := slices.Index(set, r)
	if i < 0 {
		return set
	}
	return slices.Delete(slices.Clone(set), i, i+1)
}

func setOrEvict(m map[Ref][]Ref, key Ref, set []Ref) {
	if len(set) == 0 {
		delete(m, key)
		return
	}
	m[key] = set
}
