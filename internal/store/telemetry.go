package store

import (
	"context"
	"time"
)

// TelemetryEventType names a telemetry event.
type TelemetryEventType string

const (
	TelemetryDocumentSet      TelemetryEventType = "document:set"
	TelemetryDocumentDelete   TelemetryEventType = "document:delete"
	TelemetryDocumentRejected TelemetryEventType = "document:rejected"
	TelemetryListenerFailed   TelemetryEventType = "listener:failed"
)

// TelemetryEvent describes one store operation for observers that are not
// part of the write path (metrics, debug consoles).
type TelemetryEvent struct {
	Type       TelemetryEventType `json:"type"`
	Operation  string             `json:"operation"`
	Collection string             `json:"collection"`
	ID         string             `json:"id,omitempty"`
	Error      *string            `json:"error,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// TelemetryFunc receives telemetry events.
type TelemetryFunc func(ctx context.Context, event TelemetryEvent) error

// OnTelemetry subscribes fn to events of type t and returns an unsubscribe
// function. Delivery is owned by the event bus and may be asynchronous.
func (s *Store) OnTelemetry(t TelemetryEventType, fn TelemetryFunc) func() {
	return s.bus.Subscribe(string(t), fn)
}

func (s *Store) emit(t TelemetryEventType, op, coll, id string, err error) {
	if s.bus == nil {
		return
	}
	ev := TelemetryEvent{
		Type:       t,
		Operation:  op,
		Collection: coll,
		ID:         id,
		Timestamp:  s.now(),
	}
	if err != nil {
		msg := err.Error()
		ev.Error = &msg
	}
	s.bus.Emit(string(t), ev)
}
