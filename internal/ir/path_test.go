package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	doc := MustFromNative(map[string]any{
		"profile": map[string]any{
			"tags": []any{"a", map[string]any{"deep": "yes"}},
		},
	})

	tests := []struct {
		path string
		want Value
		ok   bool
	}{
		{"", doc, true},
		{"profile.tags.0", String("a"), true},
		{"profile.tags.1.deep", String("yes"), true},
		{"profile.tags.9", nil, false},
		{"profile.tags.x", nil, false},
		{"profile.missing", nil, false},
		{"profile.tags.0.beyond", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Lookup(doc, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, Equal(tt.want, got))
			}
		})
	}
}

func TestSetPath(t *testing.T) {
	doc := MustFromNative(map[string]any{
		"profile": map[string]any{"tags": []any{"a", "b"}},
	})

	updated, err := SetPath(doc, "profile.tags.1", String("z"))
	require.NoError(t, err)

	got, _ := Lookup(updated, "profile.tags.1")
	assert.Equal(t, String("z"), got)

	orig, _ := Lookup(doc, "profile.tags.1")
	assert.Equal(t, String("b"), orig, "source tree must be unchanged")
}

func TestSetPathNewKey(t *testing.T) {
	doc := MustFromNative(map[string]any{"profile": map[string]any{}})

	updated, err := SetPath(doc, "profile.name", String("Al"))
	require.NoError(t, err)

	got, ok := Lookup(updated, "profile.name")
	require.True(t, ok)
	assert.Equal(t, String("Al"), got)
}

func TestSetPathErrors(t *testing.T) {
	doc := MustFromNative(map[string]any{"list": []any{"a"}, "s": "x"})

	tests := []string{"missing.key", "list.5", "s.inner"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := SetPath(doc, path, Null{})
			require.Error(t, err)
		})
	}
}

func TestSetPathEmptyReplacesRoot(t *testing.T) {
	got, err := SetPath(String("a"), "", Number(1))
	require.NoError(t, err)
	assert.Equal(t, Number(1), got)
}
