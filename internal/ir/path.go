package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitPath splits a dotted field path. Empty segments are dropped, so
// "a..b" and "a.b" address the same field.
func SplitPath(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, ".") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Lookup resolves a dotted path inside v. Numeric segments index arrays.
// An empty path returns v itself.
func Lookup(v Value, path string) (Value, bool) {
	cur := v
	for _, seg := range SplitPath(path) {
		switch node := cur.(type) {
		case Object:
			next, ok := node.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= node.Len() {
				return nil, false
			}
			cur = node.At(i)
		default:
			return nil, false
		}
	}
	return cur, true
}

// SetPath returns a copy of root with the value at path replaced by nv.
// Every container along the path must already exist; the final segment may
// name a new object key.
func SetPath(root Value, path string, nv Value) (Value, error) {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return nv, nil
	}
	return setPath(root, segs, nv)
}

func setPath(cur Value, segs []string, nv Value) (Value, error) {
	seg := segs[0]
	switch node := cur.(type) {
	case Object:
		if len(segs) == 1 {
			return node.With(seg, nv), nil
		}
		child, ok := node.Get(seg)
		if !ok {
			return nil, fmt.Errorf("path segment %q not found", seg)
		}
		updated, err := setPath(child, segs[1:], nv)
		if err != nil {
			return nil, err
		}
		return node.With(seg, updated), nil
	case Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= node.Len() {
			return nil, fmt.Errorf("array index %q out of range", seg)
		}
		if len(segs) == 1 {
			return node.Set(i, nv), nil
		}
		updated, err := setPath(node.At(i), segs[1:], nv)
		if err != nil {
			return nil, err
		}
		return node.Set(i, updated), nil
	default:
		return nil, fmt.Errorf("path segment %q addresses a %s", seg, KindOf(cur))
	}
}
