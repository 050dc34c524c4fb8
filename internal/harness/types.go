package harness

import "github.com/roach88/plumage/internal/ir"

// Trace event types.
const (
	TraceStep   = "step"
	TraceNotify = "notify"
)

// Step outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeEmpty   = "empty"
	OutcomeDeleted = "deleted"
	OutcomeInUse   = "in_use"
	OutcomeMissing = "missing"
)

// TraceEvent is one executed step or one listener notification.
type TraceEvent struct {
	Seq        int64    `json:"seq"`
	Type       string   `json:"type"`
	Op         Op       `json:"op,omitempty"`
	Listener   string   `json:"listener,omitempty"`
	Event      string   `json:"event,omitempty"`
	Collection string   `json:"collection,omitempty"`
	ID         string   `json:"id,omitempty"`
	Outcome    string   `json:"outcome,omitempty"`
	Item       ir.Value `json:"item,omitempty"`
	Refs       []string `json:"refs,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds steps and notifications in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes every failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// State maps each collection to its documents by ID after the last
	// step. Singletons use the empty ID.
	State map[string]map[string]ir.Value `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]map[string]ir.Value),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Notifications returns the notify events of the trace.
func (r *Result) Notifications() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == TraceNotify {
			out = append(out, e)
		}
	}
	return out
}
