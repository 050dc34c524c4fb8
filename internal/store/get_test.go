package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/schema"
)

func TestGetValueSingletonAndEmpty(t *testing.T) {
	s := newUserStore(t)

	res, err := s.GetValue(GetRequest{Name: "user/settings"})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty)

	mustSet(t, s, SetRequest{Name: "user/settings", Value: map[string]any{"theme": "dark"}})
	res, err = s.GetValue(GetRequest{Name: "user/settings"})
	require.NoError(t, err)
	assert.False(t, res.IsEmpty)
	assert.Equal(t, ir.ObjectOf(ir.P("theme", ir.String("dark"))), res.Item)

	res, err = s.GetValue(GetRequest{Name: "user/people", ID: "ghost"})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty)

	_, err = s.GetValue(GetRequest{Name: "user/ghosts"})
	assert.Equal(t, ErrCodeUnknownCollection, ValueErrorCodeOf(err))
}

func TestGetValueWholeCollection(t *testing.T) {
	s := newUserStore(t, "p1", "p2")
	mustSet(t, s, SetRequest{Name: "user/people", Value: map[string]any{"name": "Al"}})
	mustSet(t, s, SetRequest{Name: "user/people", Value: map[string]any{"name": "Bo"}})

	res, err := s.GetValue(GetRequest{Name: "user/people", Position: "name"})
	require.NoError(t, err)

	assert.Equal(t, ir.ObjectOf(ir.P("p1", ir.String("Al")), ir.P("p2", ir.String("Bo"))), res.Item)
}

func TestGetValuePositionAndClone(t *testing.T) {
	s := newUserStore(t, "i1")
	doc := mustSet(t, s, SetRequest{Name: "user/items", Value: map[string]any{"name": "Pen", "tags": []any{"a", "b"}}})

	res, err := s.GetValue(GetRequest{Name: "user/items", ID: doc.ID, Position: "tags.1"})
	require.NoError(t, err)
	assert.Equal(t, ir.String("b"), res.Item)

	res, err = s.GetValue(GetRequest{Name: "user/items", ID: doc.ID, Position: "tags.7"})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty)
	assert.Nil(t, res.Item)

	res, err = s.GetValue(GetRequest{Name: "user/items", ID: doc.ID, Clone: true})
	require.NoError(t, err)
	assert.Equal(t, doc.Item, res.Item)
}

func affixedStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	s := newTestStore(t, ids...)
	require.NoError(t, s.RegisterPlugin("i18n", &schema.Node{
		Type: schema.TypeObject,
		Properties: map[string]*schema.Node{
			"locale": {Type: schema.TypeString},
			"pages": {
				Type: schema.TypeCollection,
				ID: &schema.IDSpec{
					Prefix: schema.Lit("page"),
					Suffix: schema.Computed(func(ctx schema.Context) string {
						if v, ok := ctx.Value(ctx.Plugin()+"/locale", ""); ok {
							return string(v.(ir.String))
						}
						return "en"
					}),
				},
				Items: &schema.Node{Type: schema.TypeObject, Properties: map[string]*schema.Node{
					"title": {Type: schema.TypeString},
				}},
			},
			"links": {
				Type: schema.TypeCollection,
				Items: &schema.Node{Type: schema.TypeObject, Properties: map[string]*schema.Node{
					"page": {Type: schema.TypeString, Relation: "i18n/pages"},
				}},
			},
		},
	}))
	return s
}

func TestGetValueAffixFallback(t *testing.T) {
	s := affixedStore(t)
	mustSet(t, s, SetRequest{Name: "i18n/pages", ID: "home", Value: map[string]any{"title": "Home"}})
	mustSet(t, s, SetRequest{Name: "i18n/locale", Value: "fr"})
	mustSet(t, s, SetRequest{Name: "i18n/pages", ID: "home", Value: map[string]any{"title": "Accueil"}})

	title := func(req GetRequest) ir.Value {
		t.Helper()
		res, err := s.GetValue(req)
		require.NoError(t, err)
		require.False(t, res.IsEmpty, "%+v", req)
		v, _ := res.Item.(ir.Object).Get("title")
		return v
	}

	// Schema affixes follow the current locale.
	assert.Equal(t, ir.String("Accueil"), title(GetRequest{Name: "i18n/pages", ID: "home"}))
	// Explicit affixes win.
	assert.Equal(t, ir.String("Home"), title(GetRequest{Name: "i18n/pages", ID: "home", SuffixID: "en", PrefixID: "page"}))
	// Affixed IDs are used as they are.
	assert.Equal(t, ir.String("Home"), title(GetRequest{Name: "i18n/pages", ID: "page_home_en"}))
}

func TestExpand(t *testing.T) {
	s := newUserStore(t, "i1")
	mustSet(t, s, SetRequest{Name: "user/people", ID: "al", Value: map[string]any{"name": "Al", "friend": "bo"}})
	mustSet(t, s, SetRequest{Name: "user/people", ID: "bo", Value: map[string]any{"name": "Bo", "friend": "al"}})
	mustSet(t, s, SetRequest{Name: "user/people", ID: "cy", Value: map[string]any{"name": "Cy", "friend": "ghost"}})
	item := mustSet(t, s, SetRequest{Name: "user/items", Value: map[string]any{
		"name":  "Pen",
		"owner": "al",
		"refs":  []any{"cy", "al"},
	}})

	res, err := s.GetValue(GetRequest{Name: "user/items", ID: item.ID, Expand: true})
	require.NoError(t, err)

	var got []string
	for _, e := range res.Expand {
		got = append(got, e.Collection+"/"+e.ID)
	}
	// Breadth first, each document once, the al<->bo cycle and the dangling
	// ghost reference notwithstanding.
	assert.Equal(t, []string{"user/people/al", "user/people/cy", "user/people/bo"}, got)
	name, _ := res.Expand[1].Item.(ir.Object).Get("name")
	assert.Equal(t, ir.String("Cy"), name)
}

func TestExpandExcludesRoot(t *testing.T) {
	s := newUserStore(t)
	mustSet(t, s, SetRequest{Name: "user/people", ID: "al", Value: map[string]any{"name": "Al", "friend": "bo"}})
	mustSet(t, s, SetRequest{Name: "user/people", ID: "bo", Value: map[string]any{"name": "Bo", "friend": "al"}})

	got := s.Expand("user/people", "al")

	require.Len(t, got, 1)
	assert.Equal(t, "bo", got[0].ID)
}

func TestExpandResolvesBareReferences(t *testing.T) {
	s := affixedStore(t, "l1")
	page := mustSet(t, s, SetRequest{Name: "i18n/pages", ID: "home", Value: map[string]any{"title": "Home"}})
	require.Equal(t, "page_home_en", page.ID)
	link := mustSet(t, s, SetRequest{Name: "i18n/links", Value: map[string]any{"page": BareID(page.ID)}})

	got := s.Expand("i18n/links", link.ID)

	require.Len(t, got, 1)
	assert.Equal(t, "page_home_en", got[0].ID)

	// The bare reference keeps the affixed page alive.
	res, err := s.DeleteValue(DeleteRequest{Name: "i18n/pages", ID: page.ID})
	require.NoError(t, err)
	assert.True(t, res.InUse)
}
