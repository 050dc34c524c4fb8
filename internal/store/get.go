package store

import (
	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/relation"
)

// GetRequest addresses a value to read.
type GetRequest struct {
	Name     string
	ID       string
	PrefixID string
	SuffixID string

	// Expand attaches every document reachable through relations.
	Expand bool
	// Clone returns a deep copy of the item.
	Clone bool
	// Position projects a dotted field path inside the item.
	Position string
}

// Result is the view of one document returned by reads and writes.
type Result struct {
	ID       string     `json:"id"`
	Item     ir.Value   `json:"item,omitempty"`
	Metadata ir.Object  `json:"metadata"`
	Previous *Snapshot  `json:"previous,omitempty"`
	IsEmpty  bool       `json:"isEmpty"`
	IsValid  bool       `json:"isValid"`
	Expand   []Expanded `json:"expand,omitempty"`
}

// Expanded is one related document collected by Expand.
type Expanded struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Item       ir.Value  `json:"item"`
	Metadata   ir.Object `json:"metadata"`
}

// GetValue reads a singleton, one document of a collection, or a whole
// collection as an object keyed by document ID when no ID is given.
func (s *Store) GetValue(req GetRequest) (*Result, error) {
	c, ok := s.collections[req.Name]
	if !ok {
		return nil, unknownCollection(req.Name)
	}

	if c.isCollection() && req.ID == "" {
		return s.getAll(c, req), nil
	}

	id := ""
	if c.isCollection() {
		found, ok := s.lookupID(c, IDOptions{ID: req.ID, PrefixID: req.PrefixID, SuffixID: req.SuffixID})
		if !ok {
			return &Result{ID: req.ID, IsEmpty: true, IsValid: true}, nil
		}
		id = found
	}
	doc, ok := c.docs[id]
	if !ok {
		return &Result{ID: id, IsEmpty: true, IsValid: true}, nil
	}

	res := resultOf(doc)
	if req.Position != "" {
		v, ok := ir.Lookup(doc.Item, req.Position)
		if !ok {
			res.Item = nil
			res.IsEmpty = true
			return res, nil
		}
		res.Item = v
	}
	if req.Clone {
		res.Item = ir.Clone(res.Item)
	}
	if req.Expand {
		res.Expand = s.Expand(c.name, id)
	}
	return res, nil
}

func (s *Store) getAll(c *collection, req GetRequest) *Result {
	fields := make(map[string]ir.Value, len(c.order))
	for _, id := range c.order {
		item := c.docs[id].Item
		if req.Position != "" {
			v, ok := ir.Lookup(item, req.Position)
			if !ok {
				continue
			}
			item = v
		}
		if req.Clone {
			item = ir.Clone(item)
		}
		fields[id] = item
	}
	res := &Result{Item: ir.NewObject(fields), IsEmpty: len(fields) == 0, IsValid: true}
	if req.Expand {
		for _, id := range c.order {
			res.Expand = append(res.Expand, s.Expand(c.name, id)...)
		}
	}
	return res
}

func resultOf(doc *Document) *Result {
	return &Result{
		ID:       doc.ID,
		Item:     doc.Item,
		Metadata: doc.Metadata,
		Previous: doc.Previous,
		IsValid:  true,
	}
}

// Expand walks outgoing relations from (name, id) breadth first and returns
// each reachable document once. The root and dangling references are left
// out. Cycles terminate because every document is visited at most once.
func (s *Store) Expand(name, id string) []Expanded {
	root := relation.Ref{Collection: name, ID: id}
	included := map[relation.Ref]bool{root: true}
	queue := []relation.Ref{root}

	var out []Expanded
	for len(queue) > 0 {
		from := queue[0]
		queue = queue[1:]
		for _, to := range s.relations.References(from) {
			doc, ok := s.resolveRef(to)
			if !ok {
				continue
			}
			ref := relation.Ref{Collection: to.Collection, ID: doc.ID}
			if included[ref] {
				continue
			}
			included[ref] = true
			out = append(out, Expanded{
				Collection: to.Collection,
				ID:         doc.ID,
				Item:       doc.Item,
				Metadata:   doc.Metadata,
			})
			queue = append(queue, ref)
		}
	}
	return out
}

// resolveRef finds the live document an edge points at. Edges may hold a
// bare core, which is resolved through the target's affixes.
func (s *Store) resolveRef(ref relation.Ref) (*Document, bool) {
	c, ok := s.collections[ref.Collection]
	if !ok {
		return nil, false
	}
	if !c.isCollection() {
		doc, ok := c.docs[""]
		return doc, ok
	}
	id, ok := s.lookupID(c, IDOptions{ID: ref.ID})
	if !ok {
		return nil, false
	}
	return c.docs[id], true
}
