// Package listener keeps per-collection subscriber tiers and fires them in
// a fixed order when documents change.
package listener

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/ir"
)

// Event is the kind of change a listener subscribes to.
type Event string

const (
	EventUpdate Event = "update"
	EventDelete Event = "delete"
)

// Valid reports whether e is a known event.
func (e Event) Valid() bool { return e == EventUpdate || e == EventDelete }

// Wildcard is the document key for handlers that match every document.
const Wildcard = "*"

// Notification describes one committed change.
type Notification struct {
	Collection string    `json:"collection"`
	Event      Event     `json:"event"`
	ID         string    `json:"id"`
	Item       ir.Value  `json:"item,omitempty"`
	Metadata   ir.Object `json:"metadata"`
	Previous   ir.Value  `json:"previous,omitempty"`
}

// Handler receives notifications. A returned error is logged and joined
// into the Dispatch error; it never stops the remaining handlers.
type Handler func(n Notification) error

// Options describes a subscription.
//
// Tier placement: a non-nil Priority puts the handler in the priority tier
// (keyed by ID, or Wildcard when ID is empty). Otherwise CaptureAll or an
// empty ID puts it in the wildcard tier, and an ID puts it in the item tier.
type Options struct {
	Collection string
	Event      Event
	ID         string
	Priority   *int
	Force      bool
	CaptureAll bool
	Handler    Handler
}

type entry struct {
	id       string
	priority int
	force    bool
	handler  Handler
}

type key struct {
	collection string
	event      Event
}

type tiers struct {
	priority map[string][]entry
	items    map[string][]entry
	all      []entry
}

func newTiers() *tiers {
	return &tiers{
		priority: make(map[string][]entry),
		items:    make(map[string][]entry),
	}
}

// Registry holds listener tiers per (collection, event).
type Registry struct {
	tiers  map[key]*tiers
	token  func() string
	logger *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for handler errors.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithTokenGenerator overrides the random part of handler IDs.
func WithTokenGenerator(fn func() string) Option {
	return func(r *Registry) { r.token = fn }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		tiers:  make(map[key]*tiers),
		token:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a handler and returns its ID, "<documentID|*>:<token>".
func (r *Registry) Add(opts Options) (string, error) {
	if opts.Handler == nil {
		return "", errors.New("listener handler is nil")
	}
	if !opts.Event.Valid() {
		return "", fmt.Errorf("unknown listener event %q", opts.Event)
	}

	docKey := opts.ID
	if docKey == "" {
		docKey = Wildcard
	}
	e := entry{
		id:      docKey + ":" + r.token(),
		force:   opts.Force,
		handler: opts.Handler,
	}

	k := key{collection: opts.Collection, event: opts.Event}
	t, ok := r.tiers[k]
	if !ok {
		t = newTiers()
		r.tiers[k] = t
	}

	switch {
	case opts.Priority != nil:
		e.priority = *opts.Priority
		t.priority[docKey] = insertByPriority(t.priority[docKey], e)
	case opts.CaptureAll || opts.ID == "":
		t.all = append(t.all, e)
	default:
		t.items[opts.ID] = append(t.items[opts.ID], e)
	}
	return e.id, nil
}

// insertByPriority keeps the tier sorted ascending; equal priorities keep
// registration order.
func insertByPriority(list []entry, e entry) []entry {
	i, _ := slices.BinarySearchFunc(list, e.priority, func(x entry, p int) int {
		if x.priority <= p {
			return -1
		}
		return 1
	})
	return slices.Insert(slices.Clone(list), i, e)
}

// Remove unregisters handlerID. It reports whether a handler was removed.
func (r *Registry) Remove(collection string, event Event, handlerID string) bool {
	t, ok := r.tiers[key{collection: collection, event: event}]
	if !ok {
		return false
	}

	match := func(e entry) bool { return e.id == handlerID }
	for _, m := range []map[string][]entry{t.priority, t.items} {
		for docKey, list := range m {
			if i := slices.IndexFunc(list, match); i >= 0 {
				setOrDelete(m, docKey, slices.Delete(slices.Clone(list), i, i+1))
				return true
			}
		}
	}
	if i := slices.IndexFunc(t.all, match); i >= 0 {
		t.all = slices.Delete(slices.Clone(t.all), i, i+1)
		return true
	}
	return false
}

func setOrDelete(m map[string][]entry, k string, list []entry) {
	if len(list) == 0 {
		delete(m, k)
		return
	}
	m[k] = list
}

// Dispatch fires the handlers subscribed to n: the priority tier in
// ascending priority, then the item tier, then the wildcard tier. Each tier
// is snapshotted before any handler runs, so handlers may add or remove
// listeners and write to the store. When stop is true only Force handlers
// run. Handler errors are joined into the returned error.
func (r *Registry) Dispatch(n Notification, stop bool) error {
	t, ok := r.tiers[key{collection: n.Collection, event: n.Event}]
	if !ok {
		return nil
	}

	var prio []entry
	if n.ID != "" {
		prio = append(prio, t.priority[n.ID]...)
	}
	prio = mergeByPriority(prio, t.priority[Wildcard])
	items := slices.Clone(t.items[n.ID])
	all := slices.Clone(t.all)

	var errs []error
	for _, tier := range [][]entry{prio, items, all} {
		for _, e := range tier {
			if stop && !e.force {
				continue
			}
			if err := e.handler(n); err != nil {
				r.logger.Error("listener failed",
					zap.String("collection", n.Collection),
					zap.String("event", string(n.Event)),
					zap.String("id", n.ID),
					zap.String("handler", e.id),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("listener %s: %w", e.id, err))
			}
		}
	}
	return errors.Join(errs...)
}

// mergeByPriority merges two ascending lists. On ties the document tier
// comes before the wildcard tier.
func mergeByPriority(doc, wild []entry) []entry {
	out := make([]entry, 0, len(doc)+len(wild))
	i, j := 0, 0
	for i < len(doc) && j < len(wild) {
		if doc[i].priority <= wild[j].priority {
			out = append(out, doc[i])
			i++
		} else {
			out = append(out, wild[j])
			j++
		}
	}
	out = append(out, doc[i:]...)
	return append(out, wild[j:]...)
}

// Count returns the number of handlers registered for (collection, event).
func (r *Registry) Count(collection string, event Event) int {
	t, ok := r.tiers[key{collection: collection, event: event}]
	if !ok {
		return 0
	}
	n := len(t.all)
	for _, list := range t.priority {
		n += len(list)
	}
	for _, list := range t.items {
		n += len(list)
	}
	return n
}

// Reset removes every handler.
func (r *Registry) Reset() {
	r.tiers = make(map[key]*tiers)
}
