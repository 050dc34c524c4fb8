// Package store holds schema-validated plugin state in memory.
//
// A store is a set of named tables. Each plugin registers a schema whose
// top-level properties become tables: a property of type collection holds
// many documents keyed by ID, any other property holds one singleton
// document under the empty ID.
//
// # Operations
//
//   - RegisterPlugin, AddSchema: compile schemas and declare tables
//   - SetValue, UnsafeSetValue: validate and write (merge, replace or an
//     array update method)
//   - GetValue, Find, Expand: read documents, filter them, walk relations
//   - DeleteValue: remove a document, optionally cascading to targets
//     nothing else references
//   - AddListener, DeleteListener: subscribe to update and delete events
//   - OnTelemetry: observe committed, rejected and failed operations
//
// # Single Writer
//
// A Store is not safe for concurrent use. Every operation runs to
// completion on the caller's goroutine, listeners included. Handlers may
// write back into the store; each dispatch works on a snapshot of the
// registered handlers.
//
// # Guarantees
//
//   - Committed items are immutable ir values; callers never share them
//   - Validation is transactional: a rejected write leaves no document,
//     metadata or relation edge behind
//   - Relation edges are symmetric, and a referenced document is never
//     deleted
//   - Listener tiers fire in order: priority, per-document, wildcard
package store
