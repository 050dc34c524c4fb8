package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/plumage/internal/ir"
)

// FromCUE reads a declaration from a CUE struct. Recognized fields mirror
// the YAML form:
//
//	items: {
//		type: "collection"
//		items: {
//			type: "object"
//			required: ["name"]
//			properties: name: type: "string"
//		}
//		id: prefix: "usr"
//	}
//
// Defaults and affixes read from CUE are literals.
func FromCUE(v cue.Value) (*Node, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Path:    v.Path().String(),
			Message: fmt.Sprintf("schema node must be a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	n := &Node{}
	var err error

	if typ, ok, err := lookupString(v, "type"); err != nil {
		return nil, err
	} else if ok {
		n.Type = Type(typ)
	}

	if n.Properties, err = parseChildren(v, "properties"); err != nil {
		return nil, err
	}
	if n.PatternProperties, err = parseChildren(v, "patternProperties"); err != nil {
		return nil, err
	}

	itemsVal := v.LookupPath(cue.ParsePath("items"))
	if itemsVal.Exists() {
		n.Items, err = FromCUE(itemsVal)
		if err != nil {
			return nil, err
		}
	}

	reqVal := v.LookupPath(cue.ParsePath("required"))
	if reqVal.Exists() {
		iter, err := reqVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			n.Required = append(n.Required, name)
		}
	}

	apVal := v.LookupPath(cue.ParsePath("additionalProperties"))
	if apVal.Exists() {
		b, err := apVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		n.AdditionalProperties = &b
	}

	uiVal := v.LookupPath(cue.ParsePath("uniqueItems"))
	if uiVal.Exists() {
		if n.UniqueItems, err = uiVal.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if rel, ok, err := lookupString(v, "relation"); err != nil {
		return nil, err
	} else if ok {
		n.Relation = rel
	}

	defVal := v.LookupPath(cue.ParsePath("default"))
	if defVal.Exists() {
		data, err := defVal.MarshalJSON()
		if err != nil {
			return nil, formatCUEError(err)
		}
		dv, err := ir.ParseJSON(data)
		if err != nil {
			return nil, &CompileError{Path: "default", Message: err.Error(), Pos: defVal.Pos()}
		}
		n.Default = &Default{Value: dv}
	}

	idVal := v.LookupPath(cue.ParsePath("id"))
	if idVal.Exists() {
		spec := &IDSpec{}
		if p, ok, err := lookupString(idVal, "prefix"); err != nil {
			return nil, err
		} else if ok {
			spec.Prefix = Lit(p)
		}
		if s, ok, err := lookupString(idVal, "suffix"); err != nil {
			return nil, err
		} else if ok {
			spec.Suffix = Lit(s)
		}
		n.ID = spec
	}

	return n, nil
}

func parseChildren(v cue.Value, field string) (map[string]*Node, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]*Node)
	for iter.Next() {
		child, err := FromCUE(iter.Value())
		if err != nil {
			return nil, err
		}
		out[iter.Label()] = child
	}
	return out, nil
}

func lookupString(v cue.Value, field string) (string, bool, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return "", false, nil
	}
	s, err := val.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Path:    "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
