package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/query"
)

func seedItems(t *testing.T, s *Store) {
	t.Helper()
	for _, v := range []map[string]any{
		{"name": "Pen", "score": 3, "tags": []any{"office"}},
		{"name": "Cup", "score": 7, "tags": []any{"kitchen", "office"}},
		{"name": "Pan", "score": 9, "tags": []any{"kitchen"}},
	} {
		mustSet(t, s, SetRequest{Name: "user/items", Value: v})
	}
}

func ids(results []*Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestFind(t *testing.T) {
	tests := []struct {
		name  string
		where query.Filter
		limit int
		want  []string
	}{
		{name: "no filter", want: []string{"i1", "i2", "i3"}},
		{name: "comparison", where: query.Where("score", query.OpGt, ir.Number(5)), want: []string{"i2", "i3"}},
		{name: "contains", where: query.Where("tags", query.OpContains, ir.String("office")), want: []string{"i1", "i2"}},
		{
			name: "or",
			where: query.Or{Filters: []query.Filter{
				query.Where("name", query.OpEq, ir.String("Pen")),
				query.Where("name", query.OpEq, ir.String("Pan")),
			}},
			want: []string{"i1", "i3"},
		},
		{
			name: "and not",
			where: query.And{Filters: []query.Filter{
				query.Where("tags", query.OpContains, ir.String("kitchen")),
				query.Not{Filter: query.Where("score", query.OpGte, ir.Number(9))},
			}},
			want: []string{"i2"},
		},
		{name: "document id", where: query.Where(query.IDField, query.OpEq, ir.String("i3")), want: []string{"i3"}},
		{name: "limit", limit: 2, want: []string{"i1", "i2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newUserStore(t, "i1", "i2", "i3")
			seedItems(t, s)

			got, err := s.Find(FindRequest{Name: "user/items", Where: tt.where, Limit: tt.limit})

			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

type prefixEvaluator struct{}

func (prefixEvaluator) Evaluate(op query.Operator, actual ir.Value, found bool, expected ir.Value) (bool, error) {
	a, _ := actual.(ir.String)
	e, _ := expected.(ir.String)
	return found && op == "initial" && strings.HasPrefix(string(a), string(e)), nil
}

func TestFindWithExternalEvaluator(t *testing.T) {
	s, err := New(WithIDGenerator(NewFixedGenerator("i1", "i2", "i3")), WithEvaluator(prefixEvaluator{}))
	require.NoError(t, err)
	require.NoError(t, s.RegisterPlugin("user", userSchema()))
	seedItems(t, s)

	got, err := s.Find(FindRequest{Name: "user/items", Where: query.Where("name", "initial", ir.String("P"))})

	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i3"}, ids(got))
}

func TestFindCustomOperator(t *testing.T) {
	proc := query.NewProcessor(nil)
	proc.RegisterOperator("even", func(actual ir.Value, found bool, _ ir.Value) (bool, error) {
		n, ok := query.ToFloat64(actual)
		return found && ok && int(n)%2 == 0, nil
	})
	s, err := New(WithIDGenerator(NewFixedGenerator("i1", "i2", "i3")), WithEvaluator(proc))
	require.NoError(t, err)
	require.NoError(t, s.RegisterPlugin("user", userSchema()))
	mustSet(t, s, SetRequest{Name: "user/items", Value: map[string]any{"name": "A", "score": 2}})
	mustSet(t, s, SetRequest{Name: "user/items", Value: map[string]any{"name": "B", "score": 3}})

	got, err := s.Find(FindRequest{Name: "user/items", Where: query.Where("score", "even", nil)})

	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, ids(got))
}

func TestFindErrors(t *testing.T) {
	s := newUserStore(t, "i1")
	mustSet(t, s, SetRequest{Name: "user/items", Value: map[string]any{"name": "Pen"}})

	_, err := s.Find(FindRequest{Name: "user/ghosts"})
	assert.Equal(t, ErrCodeUnknownCollection, ValueErrorCodeOf(err))

	_, err = s.Find(FindRequest{Name: "user/items", Where: query.Where("name", "fuzzy", ir.String("x"))})
	assert.Error(t, err)
}
