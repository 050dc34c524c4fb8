package testutil

import (
	"strconv"
	"sync/atomic"
)

// SequenceGenerator hands out "<prefix>1", "<prefix>2", ... It satisfies
// store.IDGenerator, and its Generate method can serve as a listener token
// source.
//
// Thread-safety: safe for concurrent use.
type SequenceGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceGenerator creates a generator for prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceGenerator) Generate() string {
	return g.prefix + strconv.FormatInt(g.n.Add(1), 10)
}
