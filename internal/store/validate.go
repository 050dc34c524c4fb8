package store

import (
	"strconv"

	"github.com/roach88/plumage/internal/ir"
	"github.com/roach88/plumage/internal/relation"
	"github.com/roach88/plumage/internal/schema"
)

// validation is one pass over a candidate value. Relation edges found along
// the way are only collected; the caller links them after the whole value
// has been accepted, so a failed write leaves the relation graph untouched.
type validation struct {
	store *Store
	ctx   schema.Context
	edges []relation.Ref
}

func (s *Store) newValidation(c *collection) *validation {
	return &validation{store: s, ctx: s.contextFor(c)}
}

// value checks v against the entry compiled at path and returns v with
// defaults applied.
func (vd *validation) value(v ir.Value, path string) (ir.Value, error) {
	entry, ok := vd.store.schemas.Get(path)
	if !ok {
		return nil, schemaErr(path, KeywordSchema, "no schema is compiled at this path")
	}

	switch entry.Type {
	case schema.TypeObject:
		return vd.object(v, path, entry)
	case schema.TypeArray:
		return vd.array(v, path, entry)
	case schema.TypeCollection:
		return vd.collection(v, path)
	case schema.TypeOpaque:
		if _, ok := v.(ir.Opaque); !ok {
			return nil, typeMismatch(path, entry.Type, v)
		}
		return v, nil
	default:
		return vd.scalar(v, path, entry)
	}
}

func (vd *validation) object(v ir.Value, path string, entry *schema.Entry) (ir.Value, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, typeMismatch(path, entry.Type, v)
	}
	if entry.IsAny() {
		return obj, nil
	}

	for _, prop := range entry.Properties {
		childPath := path + "/" + prop.Name
		child, present := obj.Get(prop.Name)
		if !present {
			def, err := vd.materializeDefault(childPath)
			if err != nil {
				return nil, err
			}
			if def == nil {
				if prop.Required {
					return nil, schemaErr(childPath, KeywordRequired, "required property %q is missing", prop.Name)
				}
				continue
			}
			child = def
		}
		checked, err := vd.value(child, childPath)
		if err != nil {
			return nil, err
		}
		obj = obj.With(prop.Name, checked)
	}

	for _, key := range obj.Keys() {
		if _, declared := entry.Property(key); declared {
			continue
		}
		if pattern, ok := entry.MatchPattern(key); ok {
			child, _ := obj.Get(key)
			checked, err := vd.value(child, path+"/"+pattern.Source)
			if err != nil {
				return nil, err
			}
			obj = obj.With(key, checked)
			continue
		}
		if !entry.AllowsAdditional() {
			return nil, schemaErr(path, KeywordAdditionalProperties, "property %q is not allowed", key)
		}
	}
	return obj, nil
}

// materializeDefault returns the default for the entry at path, or nil when
// none is declared. A default that materializes to null counts as none.
func (vd *validation) materializeDefault(path string) (ir.Value, error) {
	entry, ok := vd.store.schemas.Get(path)
	if !ok || entry.Options.Default == nil {
		return nil, nil
	}
	def, err := entry.Options.Default.Materialize(vd.ctx)
	if err != nil {
		return nil, schemaErr(path, KeywordDefault, "default generator failed: %v", err)
	}
	if ir.KindOf(def) == ir.KindNull {
		return nil, nil
	}
	return def, nil
}

func (vd *validation) array(v ir.Value, path string, entry *schema.Entry) (ir.Value, error) {
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, typeMismatch(path, entry.Type, v)
	}
	if entry.Options.UniqueItems {
		if err := checkUnique(arr, path); err != nil {
			return nil, err
		}
	}

	itemPath := path + "/items"
	if _, ok := vd.store.schemas.Get(itemPath); !ok {
		return arr, nil
	}
	for i := range arr.Len() {
		checked, err := vd.value(arr.At(i), itemPath)
		if err != nil {
			return nil, err
		}
		arr = arr.Set(i, checked)
	}
	return arr, nil
}

func checkUnique(arr ir.Array, path string) error {
	for i := range arr.Len() {
		for j := i + 1; j < arr.Len(); j++ {
			if ir.Equal(arr.At(i), arr.At(j)) {
				return schemaErr(path, KeywordUniqueItems, "items %d and %d are equal", i, j)
			}
		}
	}
	return nil
}

// collection checks a whole table written at once, an object keyed by ID.
func (vd *validation) collection(v ir.Value, path string) (ir.Value, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, typeMismatch(path, schema.TypeCollection, v)
	}
	for _, id := range obj.Keys() {
		item, _ := obj.Get(id)
		checked, err := vd.value(item, path+"/items")
		if err != nil {
			return nil, err
		}
		obj = obj.With(id, checked)
	}
	return obj, nil
}

func (vd *validation) scalar(v ir.Value, path string, entry *schema.Entry) (ir.Value, error) {
	var ref string
	switch x := v.(type) {
	case ir.String:
		if entry.Type != schema.TypeString {
			return nil, typeMismatch(path, entry.Type, v)
		}
		ref = string(x)
	case ir.Number:
		if entry.Type != schema.TypeNumber {
			return nil, typeMismatch(path, entry.Type, v)
		}
		ref = strconv.FormatFloat(float64(x), 'f', -1, 64)
	case ir.Bool:
		if entry.Type != schema.TypeBoolean {
			return nil, typeMismatch(path, entry.Type, v)
		}
	default:
		return nil, typeMismatch(path, entry.Type, v)
	}

	if target := entry.Options.Relation; target != "" {
		vd.edges = append(vd.edges, vd.store.refTo(target, ref))
	}
	return v, nil
}

// refTo builds the edge for a reference to id in target. A singleton holds
// its one document under the empty ID, so any reference to it lands there.
func (s *Store) refTo(target, id string) relation.Ref {
	if c, ok := s.collections[target]; ok && !c.isCollection() {
		id = ""
	}
	return relation.Ref{Collection: target, ID: id}
}

func typeMismatch(path string, want schema.Type, got ir.Value) *SchemaError {
	return schemaErr(path, KeywordType, "expected %s, got %s", want, ir.KindOf(got))
}
