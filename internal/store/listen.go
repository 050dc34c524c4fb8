package store

import (
	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/listener"
)

// ListenRequest describes a subscription. See listener.Options for tier
// placement.
type ListenRequest struct {
	Name       string
	Event      listener.Event
	ID         string
	Priority   *int
	Force      bool
	CaptureAll bool
	Handler    listener.Handler
}

// AddListener subscribes a handler and returns its handler ID. An unaffixed
// document ID is resolved through the collection's affixes first.
func (s *Store) AddListener(req ListenRequest) (string, error) {
	c, ok := s.collections[req.Name]
	if !ok {
		return "", unknownCollection(req.Name)
	}
	id := req.ID
	if id != "" && c.isCollection() {
		if found, ok := s.lookupID(c, IDOptions{ID: id}); ok {
			id = found
		} else if resolved, err := s.ResolveID(c.name, IDOptions{ID: id}); err == nil {
			id = resolved
		}
	}
	return s.listeners.Add(listener.Options{
		Collection: c.name,
		Event:      req.Event,
		ID:         id,
		Priority:   req.Priority,
		Force:      req.Force,
		CaptureAll: req.CaptureAll,
		Handler:    req.Handler,
	})
}

// DeleteListener removes a handler by the ID AddListener returned.
func (s *Store) DeleteListener(name string, event listener.Event, handlerID string) (bool, error) {
	if _, ok := s.collections[name]; !ok {
		return false, unknownCollection(name)
	}
	removed := s.listeners.Remove(name, event, handlerID)
	if removed {
		s.logger.Debug("listener removed",
			zap.String("collection", name),
			zap.String("event", string(event)),
			zap.Int("remaining", s.listeners.Count(name, event)))
	}
	return removed, nil
}

// ListenerCount returns how many handlers are registered for event on name,
// across every tier.
func (s *Store) ListenerCount(name string, event listener.Event) int {
	return s.listeners.Count(name, event)
}
