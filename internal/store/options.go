package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/query"
)

// IDGenerator produces the random core of document IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 cores.
// It is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined cores for tests.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next token. It panics when all tokens are consumed,
// which surfaces tests that create more documents than they declared.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator overrides UUIDv7 document ID cores.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithNow overrides the wall clock used for metadata timestamps.
func WithNow(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithUserID stamps userId into the metadata of every write.
func WithUserID(id string) Option {
	return func(s *Store) { s.userID = id }
}

// WithEvaluator replaces the operator evaluator used by Find.
func WithEvaluator(ev query.Evaluator) Option {
	return func(s *Store) { s.evaluator = ev }
}

// WithHandlerTokens overrides the random part of listener handler IDs.
func WithHandlerTokens(fn func() string) Option {
	return func(s *Store) { s.handlerTokens = fn }
}
