package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/asaidimu/go-events"
	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/listener"
	"github.com/roach88/plumage/internal/query"
	"github.com/roach88/plumage/internal/relation"
	"github.com/roach88/plumage/internal/schema"
)

// Document is one stored value with its metadata.
type Document struct {
	ID       string    `json:"id"`
	Item     ir.Value  `json:"item"`
	Metadata ir.Object `json:"metadata"`
	Previous *Snapshot `json:"previous,omitempty"`
}

// Snapshot is a document's state before its last write.
type Snapshot struct {
	Item     ir.Value  `json:"item"`
	Metadata ir.Object `json:"metadata"`
}

// collection is the live table behind one declared name. Singletons keep
// their value under the empty ID.
type collection struct {
	name     string
	plugin   string
	entry    *schema.Entry
	itemPath string
	docs     map[string]*Document
	order    []string
}

func (c *collection) isCollection() bool {
	return c.entry.Type == schema.TypeCollection
}

func (c *collection) put(doc *Document) {
	if _, ok := c.docs[doc.ID]; !ok {
		c.order = append(c.order, doc.ID)
	}
	c.docs[doc.ID] = doc
}

func (c *collection) remove(id string) {
	delete(c.docs, id)
	if i := slices.Index(c.order, id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

// Store is the schema-validated relational state store.
//
// A Store is single-writer: every operation runs to completion on the
// caller's goroutine, and listeners run inline. Listeners may call back
// into the store. A Store must not be shared between goroutines without
// external synchronization.
type Store struct {
	schemas     *schema.Table
	collections map[string]*collection
	relations   *relation.Tracker
	listeners   *listener.Registry
	bus         *events.TypedEventBus[TelemetryEvent]

	evaluator     query.Evaluator
	ids           IDGenerator
	now           func() time.Time
	userID        string
	handlerTokens func() string
	logger        *zap.Logger
}

// New creates an empty store.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		ids:    UUIDv7Generator{},
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = query.NewProcessor(s.logger)
	}

	bus, err := events.NewTypedEventBus[TelemetryEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize telemetry bus: %w", err)
	}
	s.bus = bus

	s.Reset()
	return s, nil
}

// Reset clears every schema, document, relation and listener.
// Telemetry subscriptions survive.
func (s *Store) Reset() {
	s.collections = make(map[string]*collection)
	if s.schemas != nil {
		s.schemas.Reset()
		s.relations.Reset()
		s.listeners.Reset()
		return
	}

	s.schemas = schema.NewTable()
	s.relations = relation.New()
	listenerOpts := []listener.Option{listener.WithLogger(s.logger)}
	if s.handlerTokens != nil {
		listenerOpts = append(listenerOpts, listener.WithTokenGenerator(s.handlerTokens))
	}
	s.listeners = listener.New(listenerOpts...)
}

// Close releases the telemetry bus. The store must not be used afterwards.
func (s *Store) Close() error {
	return s.bus.Close()
}

// AddSchema compiles node and declares it as the collection or singleton
// called name, owned by plugin.
func (s *Store) AddSchema(plugin, name string, node *schema.Node) error {
	compiled, err := schema.Compile(plugin, name, node)
	if err != nil {
		return err
	}
	s.schemas.Add(compiled)
	s.declare(plugin, name)
	return nil
}

// RegisterPlugin compiles a plugin's root declaration. Every property of
// the root object becomes a collection called "<plugin>/<property>".
func (s *Store) RegisterPlugin(plugin string, root *schema.Node) error {
	if root == nil || len(root.Properties) == 0 {
		return &schema.CompileError{Path: plugin, Message: "plugin schema must declare at least one property"}
	}
	compiled, err := schema.Compile(plugin, plugin, root)
	if err != nil {
		return err
	}
	s.schemas.Add(compiled)

	names := make([]string, 0, len(root.Properties))
	for name := range root.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		s.declare(plugin, plugin+"/"+name)
	}
	s.logger.Debug("plugin registered",
		zap.String("plugin", plugin),
		zap.Strings("collections", names))
	return nil
}

// declare creates the live table for name, keeping existing documents when
// a schema is re-registered.
func (s *Store) declare(plugin, name string) {
	entry, _ := s.schemas.Get(name)
	itemPath := name
	if entry.Type == schema.TypeCollection {
		itemPath = name + "/items"
	}
	if c, ok := s.collections[name]; ok {
		c.entry, c.itemPath, c.plugin = entry, itemPath, plugin
		return
	}
	s.collections[name] = &collection{
		name:     name,
		plugin:   plugin,
		entry:    entry,
		itemPath: itemPath,
		docs:     make(map[string]*Document),
	}
}

// Schema returns the compiled entry at path.
func (s *Store) Schema(path string) (*schema.Entry, bool) {
	return s.schemas.Get(path)
}

// SchemaPaths returns every compiled path in registration order.
func (s *Store) SchemaPaths() []string {
	return s.schemas.Paths()
}

// Collections returns declared collection names in sorted order.
func (s *Store) Collections() []string {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Documents returns the documents of name in insertion order.
func (s *Store) Documents(name string) ([]Document, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, unknownCollection(name)
	}
	out := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.docs[id])
	}
	return out, nil
}

// IsCollection reports whether name is declared with type collection.
func (s *Store) IsCollection(name string) bool {
	c, ok := s.collections[name]
	return ok && c.isCollection()
}

// pluginContext is the schema.Context handed to generators.
type pluginContext struct {
	store  *Store
	plugin string
}

func (p pluginContext) Plugin() string { return p.plugin }

func (p pluginContext) Value(name, id string) (ir.Value, bool) {
	c, ok := p.store.collections[name]
	if !ok {
		return nil, false
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, false
	}
	return doc.Item, true
}

func (s *Store) contextFor(c *collection) schema.Context {
	return pluginContext{store: s, plugin: c.plugin}
}
