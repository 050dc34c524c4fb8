package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// FromNative converts plain Go data into a Value.
//
// Accepted inputs are nil, Value, bool, string, every integer and float
// kind, json.Number, []any, []string, map[string]any and slices of maps.
// Containers are copied, so the result never aliases caller memory.
// Any other type is rejected; use Wrap to accept host handles.
func FromNative(v any) (Value, error) {
	return fromNative(v, false)
}

// Wrap is FromNative that turns unsupported types into Opaque instead of
// failing. It backs unvalidated writes of host handles.
func Wrap(v any) Value {
	out, err := fromNative(v, true)
	if err != nil {
		return Opaque{Handle: v}
	}
	return out
}

// MustFromNative is like FromNative but panics on error.
// Use only in tests or with literal inputs.
func MustFromNative(v any) Value {
	out, err := FromNative(v)
	if err != nil {
		panic(err)
	}
	return out
}

func fromNative(v any, lenient bool) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		if err := checkFinite(val); err != nil {
			return nil, err
		}
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Number(val), nil
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return finiteNumber(float64(val))
	case float64:
		return finiteNumber(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case []string:
		items := make([]Value, len(val))
		for i, s := range val {
			items[i] = String(s)
		}
		return Array{items: items}, nil
	case []any:
		items := make([]Value, len(val))
		for i, elem := range val {
			item, err := fromNative(elem, lenient)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = item
		}
		return Array{items: items}, nil
	case []map[string]any:
		items := make([]Value, len(val))
		for i, elem := range val {
			item, err := fromNative(elem, lenient)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = item
		}
		return Array{items: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(val))
		for k, elem := range val {
			item, err := fromNative(elem, lenient)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			fields[k] = item
		}
		return Object{fields: fields}, nil
	default:
		if lenient {
			return Opaque{Handle: v}, nil
		}
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func finiteNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return Number(f), nil
}

// checkFinite rejects NaN and infinities anywhere inside v.
func checkFinite(v Value) error {
	switch val := v.(type) {
	case Number:
		_, err := finiteNumber(float64(val))
		return err
	case Array:
		for i, item := range val.items {
			if err := checkFinite(item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case Object:
		for k, item := range val.fields {
			if err := checkFinite(item); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
	}
	return nil
}

// ToNative converts a Value into plain Go data (map[string]any, []any,
// string, float64, bool, nil). Opaque values yield their handle.
// The result shares no memory with v.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val.items))
		for i, item := range val.items {
			out[i] = ToNative(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(val.fields))
		for k, item := range val.fields {
			out[k] = ToNative(item)
		}
		return out
	case Opaque:
		return val.Handle
	default:
		return nil
	}
}

// Clone returns a structurally identical copy of v with fresh containers.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		items := make([]Value, len(val.items))
		for i, item := range val.items {
			items[i] = Clone(item)
		}
		return Array{items: items}
	case Object:
		if val.fields == nil {
			return Object{}
		}
		fields := make(map[string]Value, len(val.fields))
		for k, item := range val.fields {
			fields[k] = Clone(item)
		}
		return Object{fields: fields}
	default:
		return v
	}
}

// Equal reports deep structural equality. Opaque values are equal when
// their handles are comparable and ==.
func Equal(a, b Value) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch av := a.(type) {
	case nil, Null:
		return true
	case String:
		return av == b.(String)
	case Number:
		return av == b.(Number)
	case Bool:
		return av == b.(Bool)
	case Array:
		bv := b.(Array)
		if len(av.items) != len(bv.items) {
			return false
		}
		for i := range av.items {
			if !Equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case Object:
		bv := b.(Object)
		if len(av.fields) != len(bv.fields) {
			return false
		}
		for k, x := range av.fields {
			y, ok := bv.fields[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	case Opaque:
		bv := b.(Opaque)
		ra, rb := reflect.ValueOf(av.Handle), reflect.ValueOf(bv.Handle)
		if !ra.IsValid() || !rb.IsValid() {
			return ra.IsValid() == rb.IsValid()
		}
		if ra.Type() != rb.Type() || !ra.Comparable() {
			return false
		}
		return ra.Equal(rb)
	default:
		return false
	}
}
