package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plumage/internal/ir"
)

func TestGolden(t *testing.T) {
	for _, name := range []string{"cascade_delete", "cart_push"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_OmitsEmptyFields(t *testing.T) {
	data, err := MarshalTrace("demo", []TraceEvent{
		{Seq: 1, Type: TraceStep, Op: OpGet, Collection: "shop/cart", Outcome: OutcomeEmpty},
		{Seq: 2, Type: TraceNotify, Listener: "l", Event: "update", Collection: "shop/cart", Item: ir.MustFromNative([]any{"i1"})},
		{Seq: 3, Type: TraceStep, Op: OpFind, Collection: "shop/items", Outcome: OutcomeOK, Refs: []string{}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"demo","trace":[`+
			`{"collection":"shop/cart","op":"get","outcome":"empty","seq":1,"type":"step"},`+
			`{"collection":"shop/cart","event":"update","item":["i1"],"listener":"l","seq":2,"type":"notify"},`+
			`{"collection":"shop/items","op":"find","outcome":"ok","refs":[],"seq":3,"type":"step"}]}`,
		string(data))
}
