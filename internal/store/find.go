package store

import (
	"fmt"

	"github.com/roach88/plumage/internal/query"
)

// FindRequest describes a linear scan over a collection.
type FindRequest struct {
	Name  string
	Where query.Filter
	// Limit caps the number of results. Zero means no limit.
	Limit  int
	Expand bool
}

// Find returns the documents of a collection matching Where, in insertion
// order. Comparisons go through the store's evaluator.
func (s *Store) Find(req FindRequest) ([]*Result, error) {
	c, ok := s.collections[req.Name]
	if !ok {
		return nil, unknownCollection(req.Name)
	}

	var out []*Result
	for _, id := range c.order {
		doc := c.docs[id]
		ok, err := query.Match(req.Where, query.Target{ID: doc.ID, Item: doc.Item}, s.evaluator)
		if err != nil {
			return nil, fmt.Errorf("find in %s: %w", c.name, err)
		}
		if !ok {
			continue
		}
		res := resultOf(doc)
		if req.Expand {
			res.Expand = s.Expand(c.name, id)
		}
		out = append(out, res)
		if req.Limit > 0 && len(out) == req.Limit {
			break
		}
	}
	return out, nil
}
