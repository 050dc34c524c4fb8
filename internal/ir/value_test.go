package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Compile-time check via assignment
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Number(42)
	var _ Value = Bool(true)
	var _ Value = NewArray(String("a"), Number(1))
	var _ Value = ObjectOf(P("key", String("value")))
	var _ Value = Opaque{Handle: struct{}{}}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want Kind
	}{
		{"nil", nil, KindNull},
		{"null", Null{}, KindNull},
		{"string", String("x"), KindString},
		{"number", Number(1.5), KindNumber},
		{"bool", Bool(false), KindBool},
		{"array", Array{}, KindArray},
		{"object", Object{}, KindObject},
		{"opaque", Opaque{Handle: 1}, KindOpaque},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.v))
		})
	}
}

func TestObjectKeysCanonicalOrder(t *testing.T) {
	obj := ObjectOf(
		P("a", Number(1)),
		P("A", Number(2)),
		P("aa", Number(3)),
		P("aA", Number(4)),
		P("Aa", Number(5)),
		P("AA", Number(6)),
	)

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.Keys())
}

func TestObjectKeysSurrogatePairs(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 even though UTF-8 orders them the other way.
	obj := ObjectOf(P("\U0001F600", Number(1)), P("｡", Number(2)))

	assert.Equal(t, []string{"\U0001F600", "｡"}, obj.Keys())
}

func TestObjectCopyOnWrite(t *testing.T) {
	base := ObjectOf(P("a", Number(1)), P("b", Number(1)))

	withC := base.With("c", Number(3))
	withoutA := base.Without("a")
	merged := base.Merge(ObjectOf(P("b", Number(2))))

	assert.Equal(t, 2, base.Len(), "original must be unchanged")
	assert.False(t, base.Has("c"))
	assert.True(t, withC.Has("c"))
	assert.False(t, withoutA.Has("a"))

	b, ok := merged.Get("b")
	require.True(t, ok)
	assert.Equal(t, Number(2), b)
	a, ok := merged.Get("a")
	require.True(t, ok)
	assert.Equal(t, Number(1), a)
}

func TestObjectFieldsReturnsCopy(t *testing.T) {
	obj := ObjectOf(P("a", Number(1)))

	fields := obj.Fields()
	fields["a"] = Number(99)
	fields["b"] = Number(2)

	a, _ := obj.Get("a")
	assert.Equal(t, Number(1), a)
	assert.False(t, obj.Has("b"))
}

func TestNewObjectCopiesMap(t *testing.T) {
	m := map[string]Value{"a": Number(1)}
	obj := NewObject(m)
	m["a"] = Number(2)

	a, _ := obj.Get("a")
	assert.Equal(t, Number(1), a)
}

func TestArrayCopyOnWrite(t *testing.T) {
	base := NewArray(Number(1), Number(2), Number(3))

	pushed := base.Append(Number(4))
	unshifted := base.Prepend(Number(0))
	set := base.Set(0, String("x"))

	assert.Equal(t, 3, base.Len())
	assert.Equal(t, Number(1), base.At(0))
	assert.Equal(t, 4, pushed.Len())
	assert.Equal(t, Number(4), pushed.At(3))
	assert.Equal(t, Number(0), unshifted.At(0))
	assert.Equal(t, String("x"), set.At(0))
}

func TestArrayValuesReturnsCopy(t *testing.T) {
	arr := NewArray(Number(1))
	vals := arr.Values()
	vals[0] = Number(2)

	assert.Equal(t, Number(1), arr.At(0))
}

func TestArraySplice(t *testing.T) {
	base := NewArray(String("a"), String("b"), String("c"), String("d"))

	tests := []struct {
		name        string
		start       int
		deleteCount int
		insert      []Value
		want        []Value
		removed     []Value
	}{
		{
			name:        "remove middle",
			start:       1,
			deleteCount: 2,
			want:        []Value{String("a"), String("d")},
			removed:     []Value{String("b"), String("c")},
		},
		{
			name:        "insert without removal",
			start:       1,
			deleteCount: 0,
			insert:      []Value{String("x")},
			want:        []Value{String("a"), String("x"), String("b"), String("c"), String("d")},
			removed:     []Value{},
		},
		{
			name:        "negative start counts from end",
			start:       -1,
			deleteCount: 1,
			want:        []Value{String("a"), String("b"), String("c")},
			removed:     []Value{String("d")},
		},
		{
			name:        "delete count clamped",
			start:       3,
			deleteCount: 10,
			want:        []Value{String("a"), String("b"), String("c")},
			removed:     []Value{String("d")},
		},
		{
			name:        "start past end appends",
			start:       10,
			deleteCount: 1,
			insert:      []Value{String("e")},
			want:        []Value{String("a"), String("b"), String("c"), String("d"), String("e")},
			removed:     []Value{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := base.Splice(tt.start, tt.deleteCount, tt.insert...)
			assert.Equal(t, tt.want, got.Values())
			assert.Equal(t, tt.removed, removed)
			assert.Equal(t, 4, base.Len(), "original must be unchanged")
		})
	}
}

func TestArrayIndex(t *testing.T) {
	arr := NewArray(String("a"), ObjectOf(P("k", Number(1))))

	assert.Equal(t, 1, arr.Index(ObjectOf(P("k", Number(1)))))
	assert.Equal(t, -1, arr.Index(String("z")))
}

func TestZeroValuesAreEmpty(t *testing.T) {
	var obj Object
	var arr Array

	assert.Equal(t, 0, obj.Len())
	assert.Empty(t, obj.Keys())
	assert.Equal(t, 0, arr.Len())
	assert.True(t, obj.With("a", Number(1)).Has("a"))
}
