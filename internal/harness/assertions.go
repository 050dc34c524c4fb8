package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/plumage/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Notifications for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nNotifications:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s/%s\n", ev.Seq, ev.Listener, ev.Event, ev.Collection, ev.ID)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertNotified:
			err = assertNotified(result.Notifications(), a)
		case AssertNotifyOrder:
			err = assertNotifyOrder(result.Notifications(), a)
		case AssertNotifyCount:
			err = assertNotifyCount(result.Notifications(), a)
		case AssertFinalState:
			err = assertFinalState(result.State, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

// matchesNotification reports whether ev satisfies a's filters.
func matchesNotification(ev TraceEvent, a Assertion) bool {
	return (a.Listener == "" || ev.Listener == a.Listener) &&
		(a.Collection == "" || ev.Collection == a.Collection) &&
		(a.Event == "" || ev.Event == a.Event) &&
		(a.ID == "" || ev.ID == a.ID)
}

func describe(a Assertion) string {
	var parts []string
	for _, kv := range [][2]string{
		{"listener", a.Listener},
		{"collection", a.Collection},
		{"event", a.Event},
		{"id", a.ID},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	if len(parts) == 0 {
		return "any notification"
	}
	return strings.Join(parts, " ")
}

// assertNotified checks that at least one notification matches.
func assertNotified(notes []TraceEvent, a Assertion) error {
	for _, ev := range notes {
		if matchesNotification(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertNotified,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    notes,
	}
}

// assertNotifyOrder checks that listeners first fired in the given order.
// Other notifications may come in between.
func assertNotifyOrder(notes []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range notes {
		if _, seen := positions[ev.Listener]; !seen && matchesNotification(ev, Assertion{Collection: a.Collection, Event: a.Event, ID: a.ID}) {
			positions[ev.Listener] = i + 1
		}
	}

	for _, name := range a.Listeners {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertNotifyOrder,
				Expected: fmt.Sprintf("all listeners notified: %v", a.Listeners),
				Actual:   fmt.Sprintf("missing listener: %s", name),
				Trace:    notes,
			}
		}
	}
	for i := 1; i < len(a.Listeners); i++ {
		prev, curr := a.Listeners[i-1], a.Listeners[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertNotifyOrder,
				Expected: fmt.Sprintf("listeners in order: %v", a.Listeners),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: notes,
			}
		}
	}
	return nil
}

// assertNotifyCount checks the exact number of matching notifications.
func assertNotifyCount(notes []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range notes {
		if matchesNotification(ev, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertNotifyCount,
			Expected: fmt.Sprintf("%d notifications matching %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d notifications", count),
			Trace:    notes,
		}
	}
	return nil
}

// assertFinalState checks one document of the final state.
func assertFinalState(state map[string]map[string]ir.Value, a Assertion) error {
	docs, ok := state[a.Collection]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("collection %s", a.Collection),
			Actual:   "collection not declared",
		}
	}
	item, exists := docs[a.ID]

	if a.Absent {
		if exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s/%s absent", a.Collection, a.ID),
				Actual:   render(item),
			}
		}
		return nil
	}
	if !exists {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("document %s/%s", a.Collection, a.ID),
			Actual:   "document not found",
		}
	}

	expected, err := ir.FromNative(a.Expect)
	if err != nil {
		return fmt.Errorf("final_state expect: %w", err)
	}
	if !matchSubset(item, expected) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: render(expected),
			Actual:   render(item),
		}
	}
	return nil
}

// matchSubset reports whether actual contains expected. Objects match key
// by key and arrays element by element at equal length. Scalars must be
// equal.
func matchSubset(actual, expected ir.Value) bool {
	switch exp := expected.(type) {
	case ir.Object:
		act, ok := actual.(ir.Object)
		if !ok {
			return false
		}
		for _, k := range exp.Keys() {
			ev, _ := exp.Get(k)
			av, ok := act.Get(k)
			if !ok || !matchSubset(av, ev) {
				return false
			}
		}
		return true
	case ir.Array:
		act, ok := actual.(ir.Array)
		if !ok || act.Len() != exp.Len() {
			return false
		}
		for i := 0; i < exp.Len(); i++ {
			if !matchSubset(act.At(i), exp.At(i)) {
				return false
			}
		}
		return true
	default:
		return actual != nil && ir.Equal(actual, expected)
	}
}

// render formats a value as canonical JSON for messages.
func render(v ir.Value) string {
	if v == nil {
		return "<none>"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
