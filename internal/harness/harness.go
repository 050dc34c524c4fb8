package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/journal"
	"github.com/roach88/plumage/internal/listener"
	"github.com/roach88/plumage/internal/plugin"
	"github.com/roach88/plumage/internal/query"
	"github.com/roach88/plumage/internal/store"
	"github.com/roach88/plumage/internal/testutil"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	journal *journal.Journal
	logger  *zap.Logger
}

// WithJournal records every change of the run in j.
func WithJournal(j *journal.Journal) Option {
	return func(c *config) { c.journal = j }
}

// WithLogger sets the logger handed to the store and journal wiring.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// subscription is a listener added by a listen step.
type subscription struct {
	collection string
	event      listener.Event
	handlerID  string
}

// Harness executes one scenario against a fresh store.
type Harness struct {
	store     *store.Store
	clock     *testutil.SeqClock
	listeners map[string]subscription
	result    *Result
	logger    *zap.Logger
}

// scenarioIDs hands out the scenario's fixed IDs, then a sequence.
type scenarioIDs struct {
	fixed []string
	next  int
	seq   *testutil.SequenceGenerator
}

func (g *scenarioIDs) Generate() string {
	if g.next < len(g.fixed) {
		g.next++
		return g.fixed[g.next-1]
	}
	return g.seq.Generate()
}

// Run executes a scenario and returns its result.
//
// Execution flow:
// 1. Create a fresh store with deterministic IDs, clock and tokens
// 2. Set up every manifest
// 3. Attach the journal, if any
// 4. Execute steps, checking expect clauses
// 5. Snapshot final state and evaluate assertions
//
// The returned error reports a scenario that could not run at all; failed
// expectations are collected in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	st, err := store.New(
		store.WithLogger(cfg.logger),
		store.WithIDGenerator(&scenarioIDs{fixed: scenario.IDs, seq: testutil.NewSequenceGenerator("doc-")}),
		store.WithNow(testutil.NewStepClock(time.Millisecond).Now),
		store.WithHandlerTokens(testutil.NewSequenceGenerator("h").Generate),
		store.WithUserID(scenario.UserID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	for _, path := range scenario.Manifests {
		m, err := plugin.Load(path)
		if err != nil {
			return nil, err
		}
		if err := plugin.Setup(st, m); err != nil {
			return nil, fmt.Errorf("failed to set up %s: %w", path, err)
		}
	}

	ctx := context.Background()
	if cfg.journal != nil {
		detach, err := cfg.journal.Attach(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("failed to attach journal: %w", err)
		}
		defer detach()
	}

	h := &Harness{
		store:     st,
		clock:     testutil.NewSeqClock(),
		listeners: make(map[string]subscription),
		result:    NewResult(),
		logger:    cfg.logger,
	}

	for i, step := range scenario.Steps {
		if err := h.execute(i, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if err := h.snapshot(); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// execute runs one step and records it. The returned error is reserved for
// steps the harness cannot express, such as a malformed filter.
func (h *Harness) execute(i int, step Step) error {
	ev := TraceEvent{Type: TraceStep, Op: step.Op, Collection: step.Collection}
	var at int

	switch step.Op {
	case OpSet, OpUnsafeSet:
		req := store.SetRequest{
			Name:            step.Collection,
			Value:           step.Value,
			ID:              step.ID,
			PrefixID:        step.PrefixID,
			SuffixID:        step.SuffixID,
			Merge:           step.Merge,
			Replace:         step.Replace,
			Update:          step.Update,
			Metadata:        step.Metadata,
			StopPropagation: step.StopPropagation,
		}
		write := h.store.SetValue
		if step.Op == OpUnsafeSet {
			write = h.store.UnsafeSetValue
		}
		at = h.begin(&ev)
		res, err := write(req)
		switch {
		case err != nil:
			ev.ID, ev.Outcome = step.ID, outcomeOf(err)
		case !res.IsValid:
			ev.ID, ev.Outcome, ev.Item = res.ID, OutcomeInvalid, res.Item
		default:
			ev.ID, ev.Outcome, ev.Item = res.ID, OutcomeOK, res.Item
		}

	case OpGet:
		at = h.begin(&ev)
		res, err := h.store.GetValue(store.GetRequest{
			Name:     step.Collection,
			ID:       step.ID,
			PrefixID: step.PrefixID,
			SuffixID: step.SuffixID,
			Expand:   step.Expand,
			Position: step.Position,
		})
		switch {
		case err != nil:
			ev.ID, ev.Outcome = step.ID, outcomeOf(err)
		case res.IsEmpty:
			ev.ID, ev.Outcome, ev.Item = res.ID, OutcomeEmpty, res.Item
		default:
			ev.ID, ev.Outcome, ev.Item = res.ID, OutcomeOK, res.Item
		}
		if err == nil {
			for _, x := range res.Expand {
				ev.Refs = append(ev.Refs, x.Collection+"/"+x.ID)
			}
		}

	case OpDelete:
		at = h.begin(&ev)
		ev.ID = step.ID
		res, err := h.store.DeleteValue(store.DeleteRequest{
			Name:            step.Collection,
			ID:              step.ID,
			Cascade:         step.Cascade,
			StopPropagation: step.StopPropagation,
		})
		switch {
		case err != nil:
			ev.Outcome = outcomeOf(err)
		case res.InUse:
			ev.Outcome = OutcomeInUse
		case res.Deleted:
			ev.Outcome = OutcomeDeleted
		default:
			ev.Outcome = OutcomeMissing
		}

	case OpFind:
		var where query.Filter
		if step.Where != nil {
			f, err := step.Where.Build()
			if err != nil {
				return fmt.Errorf("where: %w", err)
			}
			where = f
		}
		at = h.begin(&ev)
		found, err := h.store.Find(store.FindRequest{Name: step.Collection, Where: where, Limit: step.Limit})
		if err != nil {
			ev.Outcome = outcomeOf(err)
		} else {
			ev.Outcome = OutcomeOK
			ev.Refs = []string{}
			for _, r := range found {
				ev.Refs = append(ev.Refs, r.ID)
			}
		}

	case OpListen:
		if _, ok := h.listeners[step.Name]; ok {
			return fmt.Errorf("listener %q already exists", step.Name)
		}
		at = h.begin(&ev)
		ev.ID, ev.Listener = step.ID, step.Name
		handlerID, err := h.store.AddListener(store.ListenRequest{
			Name:       step.Collection,
			Event:      listener.Event(step.Event),
			ID:         step.ID,
			Priority:   step.Priority,
			Force:      step.Force,
			CaptureAll: step.CaptureAll,
			Handler:    h.recorder(step.Name, step.Fail),
		})
		if err != nil {
			ev.Outcome = outcomeOf(err)
		} else {
			ev.Outcome = OutcomeOK
			h.listeners[step.Name] = subscription{
				collection: step.Collection,
				event:      listener.Event(step.Event),
				handlerID:  handlerID,
			}
		}

	case OpUnlisten:
		sub, ok := h.listeners[step.Name]
		if !ok {
			return fmt.Errorf("unknown listener %q", step.Name)
		}
		at = h.begin(&ev)
		ev.Collection, ev.Listener = sub.collection, step.Name
		removed, err := h.store.DeleteListener(sub.collection, sub.event, sub.handlerID)
		switch {
		case err != nil:
			ev.Outcome = outcomeOf(err)
		case removed:
			ev.Outcome = OutcomeOK
			delete(h.listeners, step.Name)
		default:
			ev.Outcome = OutcomeMissing
		}

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	h.result.Trace[at] = ev
	h.check(i, step, ev)
	h.logger.Debug("step completed",
		zap.Int("step", i),
		zap.String("op", string(step.Op)),
		zap.String("collection", step.Collection))
	return nil
}

// begin reserves the trace slot for a step so that notifications fired
// during the step land after it.
func (h *Harness) begin(ev *TraceEvent) int {
	ev.Seq = h.clock.Next()
	h.result.Trace = append(h.result.Trace, *ev)
	return len(h.result.Trace) - 1
}

// recorder returns a handler that appends a notify event to the trace.
func (h *Harness) recorder(name string, fail bool) listener.Handler {
	return func(n listener.Notification) error {
		ev := TraceEvent{
			Seq:        h.clock.Next(),
			Type:       TraceNotify,
			Listener:   name,
			Event:      string(n.Event),
			Collection: n.Collection,
			ID:         n.ID,
		}
		if n.Event == listener.EventUpdate {
			ev.Item = n.Item
		}
		h.result.Trace = append(h.result.Trace, ev)
		if fail {
			return fmt.Errorf("listener %s failed", name)
		}
		return nil
	}
}

// check compares a step's trace event with its expect clause.
func (h *Harness) check(i int, step Step, got TraceEvent) {
	exp := step.Expect
	if exp == nil {
		if isError(got.Outcome) {
			h.result.AddError(fmt.Sprintf("step %d (%s %s): unexpected %s", i, step.Op, step.Collection, got.Outcome))
		}
		return
	}

	want := exp.Outcome
	if want == "" {
		want = OutcomeOK
	}
	if got.Outcome != want {
		h.result.AddError(fmt.Sprintf("step %d (%s %s): outcome = %s, want %s", i, step.Op, step.Collection, got.Outcome, want))
	}
	if exp.ID != "" && got.ID != exp.ID {
		h.result.AddError(fmt.Sprintf("step %d (%s %s): id = %q, want %q", i, step.Op, step.Collection, got.ID, exp.ID))
	}
	if exp.Item != nil {
		expected, err := ir.FromNative(exp.Item)
		if err != nil {
			h.result.AddError(fmt.Sprintf("step %d: expect.item: %v", i, err))
		} else if !matchSubset(got.Item, expected) {
			h.result.AddError(fmt.Sprintf("step %d (%s %s): item = %s, want %s", i, step.Op, step.Collection, render(got.Item), render(expected)))
		}
	}
	if exp.Refs != nil && !slices.Equal(got.Refs, exp.Refs) {
		h.result.AddError(fmt.Sprintf("step %d (%s %s): refs = %v, want %v", i, step.Op, step.Collection, got.Refs, exp.Refs))
	}
}

// snapshot copies every collection's documents into the result.
func (h *Harness) snapshot() error {
	for _, name := range h.store.Collections() {
		docs, err := h.store.Documents(name)
		if err != nil {
			return err
		}
		byID := make(map[string]ir.Value, len(docs))
		for _, d := range docs {
			byID[d.ID] = d.Item
		}
		h.result.State[name] = byID
	}
	return nil
}

// outcomeOf names an error the way expect clauses spell it.
func outcomeOf(err error) string {
	var se *store.SchemaError
	if errors.As(err, &se) {
		return "error:schema:" + string(se.Keyword)
	}
	if code := store.ValueErrorCodeOf(err); code != "" {
		return "error:" + string(code)
	}
	return "error"
}

func isError(outcome string) bool {
	return outcome == "error" || strings.HasPrefix(outcome, "error:")
}
