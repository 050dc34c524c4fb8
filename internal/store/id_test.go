package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plumage/internal/schema"
)

func TestResolveID(t *testing.T) {
	tests := []struct {
		name string
		opts IDOptions
		want string
	}{
		{name: "schema affixes", opts: IDOptions{ID: "home"}, want: "page_home_en"},
		{name: "explicit prefix wins", opts: IDOptions{ID: "home", PrefixID: "doc"}, want: "doc_home_en"},
		{name: "explicit suffix wins", opts: IDOptions{ID: "home", SuffixID: "de"}, want: "page_home_de"},
		{name: "already affixed", opts: IDOptions{ID: "x_home_y"}, want: "x_home_y"},
		{name: "affixed with empty prefix", opts: IDOptions{ID: "_home_y"}, want: "_home_y"},
		{name: "generated core", opts: IDOptions{}, want: "page_g1_en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := affixedStore(t, "g1")

			id, err := s.ResolveID("i18n/pages", tt.opts)

			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestResolveIDWithoutAffixes(t *testing.T) {
	s := newUserStore(t, "g1")

	id, err := s.ResolveID("user/people", IDOptions{})
	require.NoError(t, err)
	assert.Equal(t, "g1", id)

	id, err = s.ResolveID("user/people", IDOptions{ID: "al"})
	require.NoError(t, err)
	assert.Equal(t, "al", id)

	_, err = s.ResolveID("user/ghosts", IDOptions{})
	assert.Equal(t, ErrCodeUnknownCollection, ValueErrorCodeOf(err))
}

func TestResolveIDDefaultGenerator(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddSchema("app", "app/docs", &schema.Node{
		Type:  schema.TypeCollection,
		ID:    &schema.IDSpec{Default: func(ctx schema.Context) string { return ctx.Plugin() + "-doc" }},
		Items: &schema.Node{Type: schema.TypeString},
	}))

	id, err := s.ResolveID("app/docs", IDOptions{})

	require.NoError(t, err)
	assert.Equal(t, "app-doc", id)
}

func TestResolveIDRejectsSeparatorInParts(t *testing.T) {
	tests := []struct {
		name string
		opts IDOptions
	}{
		{name: "core with schema affixes", opts: IDOptions{ID: "a_b"}},
		{name: "explicit prefix", opts: IDOptions{ID: "home", PrefixID: "x_y"}},
		{name: "explicit suffix", opts: IDOptions{ID: "home", SuffixID: "en_GB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := affixedStore(t)

			_, err := s.ResolveID("i18n/pages", tt.opts)

			assert.Equal(t, ErrCodeInvalidID, ValueErrorCodeOf(err))
		})
	}

	// Without affixes the core is stored as given.
	s := newUserStore(t, "g1")
	id, err := s.ResolveID("user/people", IDOptions{ID: "a_b"})
	require.NoError(t, err)
	assert.Equal(t, "a_b", id)

	_, _, err = s.ResolveDefaultID("user/items", IDOptions{PrefixID: "p_q"})
	assert.Equal(t, ErrCodeInvalidID, ValueErrorCodeOf(err))
}

func TestResolveDefaultIDRoundTrip(t *testing.T) {
	s := newUserStore(t, "core1")

	id, bare, err := s.ResolveDefaultID("user/items", IDOptions{PrefixID: "p", SuffixID: "s"})
	require.NoError(t, err)

	assert.Equal(t, "p_core1_s", id)
	assert.Equal(t, "core1", bare)
	assert.Equal(t, bare, BareID(id))
	assert.Equal(t, id, joinID("p", BareID(id), "s"))
}

func TestResolveDefaultIDIgnoresCallerCore(t *testing.T) {
	s := newUserStore(t, "fresh")

	id, bare, err := s.ResolveDefaultID("user/items", IDOptions{ID: "given"})

	require.NoError(t, err)
	assert.Equal(t, "fresh", id)
	assert.Equal(t, "fresh", bare)
}

func TestBareID(t *testing.T) {
	tests := map[string]string{
		"p_core_s": "core",
		"_core_s":  "core",
		"p_core_":  "core",
		"_core_":   "_core_",
		"core":     "core",
		"a_b":      "a_b",
		"a_b_c_d":  "a_b_c_d",
	}
	for in, want := range tests {
		assert.Equal(t, want, BareID(in), in)
	}
}
