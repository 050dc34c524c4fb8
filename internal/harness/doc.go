// Package harness runs YAML scenarios against a store and records a
// deterministic trace of every step and listener notification.
//
// # Scenario Format
//
//	name: cascade_delete
//	description: "Deleting an item cascades to its unused owner"
//	manifests:
//	  - ../plugins/user.yaml
//	ids: [p1, i1]
//	steps:
//	  - op: listen
//	    name: audit
//	    collection: user/people
//	    event: delete
//	  - op: set
//	    collection: user/people
//	    value: { name: Al }
//	    expect: { id: p1 }
//	  - op: delete
//	    collection: user/items
//	    id: i1
//	    cascade: true
//	    expect: { outcome: deleted }
//	assertions:
//	  - type: notified
//	    listener: audit
//	    id: p1
//	  - type: final_state
//	    collection: user/people
//	    id: p1
//	    absent: true
//
// Manifest paths are resolved relative to the scenario file.
//
// # Step Operations
//
//   - set, unsafe_set: write a value (merge, replace, update, metadata)
//   - get: read a document, optionally expanding relations
//   - delete: delete a document, optionally cascading
//   - find: filter a collection with a where clause
//   - listen, unlisten: add or remove a named recording listener
//
// # Outcomes
//
// Every step ends in one outcome: ok, invalid, empty, deleted, in_use,
// missing, or error:<kind>. Schema errors read error:schema:<keyword> and
// value errors read error:<CODE>. A step without an expect clause fails the
// scenario only when it ends in an error.
//
// # Assertion Types
//
//   - notified: a listener saw a matching notification
//   - notify_order: listeners first fired in the given order
//   - notify_count: exactly N matching notifications
//   - final_state: a document matches (subset) or is absent
//
// # Deterministic Testing
//
// Document IDs come from the scenario's ids list, then from a sequence
// ("doc-1", "doc-2", ...). Timestamps come from a stepping clock and
// listener tokens from a sequence, so the same scenario always yields a
// byte-identical canonical trace for golden comparison.
package harness
