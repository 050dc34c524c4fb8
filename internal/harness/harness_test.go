package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/journal"
	"github.com/roach88/plumage/internal/query"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func shopScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Manifests:   []string{filepath.Join("testdata", "plugins", "shop.yaml")},
		IDs:         []string{"p1", "p2", "p3"},
		Steps:       steps,
	}
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"cascade_delete", "cart_push", "listener_order"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "listener_order")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_TraceOrder(t *testing.T) {
	result, err := Run(loadScenario(t, "listener_order"))
	require.NoError(t, err)

	var names []string
	for _, ev := range result.Notifications() {
		names = append(names, ev.Listener)
	}
	// The stopped write only reaches the forced listener.
	assert.Equal(t, []string{"urgent", "doc", "wildcard", "broken", "audit", "audit"}, names)

	for i := 1; i < len(result.Trace); i++ {
		assert.Less(t, result.Trace[i-1].Seq, result.Trace[i].Seq)
	}
	// Notifications follow the step that caused them.
	assert.Equal(t, TraceStep, result.Trace[6].Type)
	assert.Equal(t, TraceNotify, result.Trace[7].Type)
}

func TestRun_State(t *testing.T) {
	result, err := Run(loadScenario(t, "cascade_delete"))
	require.NoError(t, err)

	assert.Empty(t, result.State["shop/people"])
	assert.Empty(t, result.State["shop/items"])
	assert.Contains(t, result.State, "shop/cart")
}

func TestRun_FailedExpectations(t *testing.T) {
	result, err := Run(shopScenario(
		Step{Op: OpSet, Collection: "shop/people", Value: map[string]any{"name": "Al"}, Expect: &Expect{ID: "p9"}},
		Step{Op: OpSet, Collection: "shop/people", Value: map[string]any{"age": 3}},
		Step{Op: OpGet, Collection: "shop/people", ID: "p1", Expect: &Expect{Item: map[string]any{"name": "Bo"}}},
		Step{Op: OpDelete, Collection: "shop/people", ID: "nobody", Expect: &Expect{Outcome: OutcomeDeleted}},
	))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `id = "p1", want "p9"`)
	assert.Contains(t, result.Errors[1], "unexpected error:schema:required")
	assert.Contains(t, result.Errors[2], `item = {"name":"Al"}, want {"name":"Bo"}`)
	assert.Contains(t, result.Errors[3], "outcome = missing, want deleted")
}

func TestRun_Find(t *testing.T) {
	result, err := Run(shopScenario(
		Step{Op: OpSet, Collection: "shop/people", Value: map[string]any{"name": "Al"}},
		Step{Op: OpSet, Collection: "shop/people", Value: map[string]any{"name": "Bo"}},
		Step{Op: OpSet, Collection: "shop/people", Value: map[string]any{"name": "Al"}},
		Step{
			Op:         OpFind,
			Collection: "shop/people",
			Where:      &query.Spec{Field: "name", Op: "eq", Value: "Al"},
			Expect:     &Expect{Refs: []string{"p1", "p3"}},
		},
		Step{Op: OpFind, Collection: "shop/people", Limit: 1, Expect: &Expect{Refs: []string{"p1"}}},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_GetExpandsRelations(t *testing.T) {
	result, err := Run(shopScenario(
		Step{Op: OpSet, Collection: "shop/people", Value: map[string]any{"name": "Al"}},
		Step{Op: OpSet, Collection: "shop/items", Value: map[string]any{"name": "pen", "owner": "p1"}, Expect: &Expect{ID: "p2"}},
		Step{Op: OpGet, Collection: "shop/items", ID: "p2", Expand: true, Expect: &Expect{Refs: []string{"shop/people/p1"}}},
		Step{Op: OpGet, Collection: "shop/items", ID: "p3", Expect: &Expect{Outcome: OutcomeEmpty}},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnsafeSet(t *testing.T) {
	result, err := Run(shopScenario(
		Step{Op: OpUnsafeSet, Collection: "shop/people", ID: "p1", Value: map[string]any{"age": 3}},
		Step{Op: OpGet, Collection: "shop/people", ID: "p1", Expect: &Expect{Item: map[string]any{"age": 3}}},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, ir.Equal(ir.MustFromNative(map[string]any{"age": 3}), result.State["shop/people"]["p1"]))
}

func TestRun_StructuralErrors(t *testing.T) {
	_, err := Run(shopScenario(Step{Op: OpUnlisten, Name: "ghost"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step 0: unknown listener "ghost"`)

	_, err = Run(shopScenario(
		Step{Op: OpListen, Name: "l", Collection: "shop/cart", Event: "update"},
		Step{Op: OpListen, Name: "l", Collection: "shop/cart", Event: "update"},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `listener "l" already exists`)

	_, err = Run(shopScenario(Step{Op: OpFind, Collection: "shop/people", Where: &query.Spec{}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "where")
}

func TestRun_WithJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	result, err := Run(loadScenario(t, "cascade_delete"), WithJournal(j))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	entries, err := j.ReadAll(context.Background())
	require.NoError(t, err)

	var got []string
	for _, e := range entries {
		got = append(got, string(e.Op)+" "+e.Collection+"/"+e.DocID)
	}
	assert.Equal(t, []string{
		"set shop/people/p1",
		"set shop/items/i1",
		"delete shop/items/i1",
		"delete shop/people/p1",
	}, got)
}
