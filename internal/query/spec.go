package query

import (
	"errors"
	"fmt"

	"github.com/roach88/plumage/internal/ir"
)

// Spec is the declarative form of a Filter as it appears in YAML scenarios
// and CLI input. Exactly one of Field, And, Or, Not must be set.
//
//	where:
//	  or:
//	    - {field: age, op: gte, value: 18}
//	    - {field: role, op: eq, value: admin}
type Spec struct {
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
	Op    string `yaml:"op,omitempty" json:"op,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
	And   []Spec `yaml:"and,omitempty" json:"and,omitempty"`
	Or    []Spec `yaml:"or,omitempty" json:"or,omitempty"`
	Not   *Spec  `yaml:"not,omitempty" json:"not,omitempty"`
}

// Build converts the spec into a Filter.
func (s Spec) Build() (Filter, error) {
	set := 0
	if s.Field != "" {
		set++
	}
	if s.And != nil {
		set++
	}
	if s.Or != nil {
		set++
	}
	if s.Not != nil {
		set++
	}
	if set != 1 {
		return nil, errors.New("filter must set exactly one of field, and, or, not")
	}

	switch {
	case s.Field != "":
		op := Operator(s.Op)
		if op == "" {
			op = OpEq
		}
		v, err := ir.FromNative(s.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %q value: %w", s.Field, err)
		}
		return Condition{Field: s.Field, Operator: op, Value: v}, nil
	case s.And != nil:
		children, err := buildAll(s.And)
		if err != nil {
			return nil, err
		}
		return And{Filters: children}, nil
	case s.Or != nil:
		children, err := buildAll(s.Or)
		if err != nil {
			return nil, err
		}
		return Or{Filters: children}, nil
	default:
		child, err := s.Not.Build()
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return Not{Filter: child}, nil
	}
}

func buildAll(specs []Spec) ([]Filter, error) {
	out := make([]Filter, 0, len(specs))
	for i, s := range specs {
		f, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}
