package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the value kinds a document may hold.
// Only Null, String, Number, Bool, Array, Object and Opaque implement it.
type Value interface {
	irValue()
}

// Kind names the dynamic kind of a Value.
type Kind string

const (
	KindNull   Kind = "null"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "boolean"
	KindArray  Kind = "array"
	KindObject Kind = "object"
	KindOpaque Kind = "opaque"
)

// Null is the JSON null value.
type Null struct{}

func (Null) irValue() {}

// String is a string value.
type String string

func (String) irValue() {}

// Number is a numeric value. Integers and floats share one representation.
type Number float64

func (Number) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Opaque wraps a host handle (a rendered node, a callback, a connection)
// that the store keeps by reference and never validates structurally.
type Opaque struct {
	Handle any
}

func (Opaque) irValue() {}

// Array is an immutable ordered list of values.
// The zero value is an empty array.
type Array struct {
	items []Value
}

func (Array) irValue() {}

// NewArray builds an array from values. The slice is copied.
func NewArray(vals ...Value) Array {
	return Array{items: slices.Clone(vals)}
}

// Len returns the number of elements.
func (a Array) Len() int { return len(a.items) }

// At returns the element at index i. It panics when i is out of range.
func (a Array) At(i int) Value { return a.items[i] }

// Values returns a copy of the elements.
func (a Array) Values() []Value { return slices.Clone(a.items) }

// Append returns a new array with vals added at the end.
func (a Array) Append(vals ...Value) Array {
	out := make([]Value, 0, len(a.items)+len(vals))
	out = append(out, a.items...)
	out = append(out, vals...)
	return Array{items: out}
}

// Prepend returns a new array with vals added at the front.
func (a Array) Prepend(vals ...Value) Array {
	out := make([]Value, 0, len(a.items)+len(vals))
	out = append(out, vals...)
	out = append(out, a.items...)
	return Array{items: out}
}

// Splice returns a new array with deleteCount elements removed at start and
// vals inserted in their place, plus the removed elements.
// Out-of-range arguments are clamped.
func (a Array) Splice(start, deleteCount int, vals ...Value) (Array, []Value) {
	n := len(a.items)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	deleteCount = max(min(deleteCount, n-start), 0)

	removed := slices.Clone(a.items[start : start+deleteCount])
	out := make([]Value, 0, n-deleteCount+len(vals))
	out = append(out, a.items[:start]...)
	out = append(out, vals...)
	out = append(out, a.items[start+deleteCount:]...)
	return Array{items: out}, removed
}

// Set returns a new array with index i replaced by v.
func (a Array) Set(i int, v Value) Array {
	out := slices.Clone(a.items)
	out[i] = v
	return Array{items: out}
}

// Index returns the position of the first element equal to v, or -1.
func (a Array) Index(v Value) int {
	return slices.IndexFunc(a.items, func(e Value) bool { return Equal(e, v) })
}

// Object is an immutable string-keyed map of values.
// The zero value is an empty object.
type Object struct {
	fields map[string]Value
}

func (Object) irValue() {}

// NewObject builds an object from a map. The map is copied.
func NewObject(m map[string]Value) Object {
	if len(m) == 0 {
		return Object{}
	}
	fields := make(map[string]Value, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return Object{fields: fields}
}

// Pair is a key-value pair for literal object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair.
// Example: ObjectOf(P("name", String("Al")), P("age", Number(3)))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// ObjectOf builds an object from pairs. Later pairs win on duplicate keys.
func ObjectOf(pairs ...Pair) Object {
	if len(pairs) == 0 {
		return Object{}
	}
	fields := make(map[string]Value, len(pairs))
	for _, p := range pairs {
		fields[p.Key] = p.Value
	}
	return Object{fields: fields}
}

// Len returns the number of fields.
func (o Object) Len() int { return len(o.fields) }

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (o Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Keys returns the keys in canonical order (UTF-16 code units).
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Fields returns a copy of the underlying map.
func (o Object) Fields() map[string]Value {
	out := make(map[string]Value, len(o.fields))
	for k, v := range o.fields {
		out[k] = v
	}
	return out
}

// With returns a new object with key set to v.
func (o Object) With(key string, v Value) Object {
	fields := o.Fields()
	fields[key] = v
	return Object{fields: fields}
}

// Without returns a new object with key removed.
func (o Object) Without(key string) Object {
	if !o.Has(key) {
		return o
	}
	fields := o.Fields()
	delete(fields, key)
	return Object{fields: fields}
}

// Merge returns a shallow per-key merge of o and other; other wins.
func (o Object) Merge(other Object) Object {
	fields := o.Fields()
	for k, v := range other.fields {
		fields[k] = v
	}
	return Object{fields: fields}
}

// KindOf returns the kind of v. A nil interface reports KindNull.
func KindOf(v Value) Kind {
	switch v.(type) {
	case nil, Null:
		return KindNull
	case String:
		return KindString
	case Number:
		return KindNumber
	case Bool:
		return KindBool
	case Array:
		return KindArray
	case Object:
		return KindObject
	default:
		return KindOpaque
	}
}

// compareKeys orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison is UTF-8 byte order, which differs for
// characters outside the BMP.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
