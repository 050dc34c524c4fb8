// Package query evaluates predicate trees against documents for find.
package query

import (
	"fmt"

	"github.com/roach88/plumage/internal/ir"
)

// Operator names a comparison.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNeq         Operator = "neq"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpIn          Operator = "in"
	OpNin         Operator = "nin"
	OpContains    Operator = "contains"
	OpNotContains Operator = "ncontains"
	OpStartsWith  Operator = "startswith"
	OpEndsWith    Operator = "endswith"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "nexists"
)

// IsStandard reports whether the operator is built in.
func (o Operator) IsStandard() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpIn, OpNin,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpExists, OpNotExists:
		return true
	}
	return false
}

// IDField addresses the document ID instead of a field of its item.
const IDField = "$id"

// Filter is a sealed predicate tree: Condition, And, Or, Not.
type Filter interface {
	filterNode()
}

// Condition compares one field against a value.
// Field is a dotted path into the item, or IDField.
type Condition struct {
	Field    string
	Operator Operator
	Value    ir.Value
}

func (Condition) filterNode() {}

// And passes when every child passes. An empty And passes.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}

// Or passes when any child passes. An empty Or fails.
type Or struct {
	Filters []Filter
}

func (Or) filterNode() {}

// Not inverts its child.
type Not struct {
	Filter Filter
}

func (Not) filterNode() {}

// Where is shorthand for a Condition.
func Where(field string, op Operator, value ir.Value) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

// Evaluator decides a single comparison. actual is the field value and
// found reports whether the field exists on the document.
type Evaluator interface {
	Evaluate(op Operator, actual ir.Value, found bool, expected ir.Value) (bool, error)
}

// Target is the view of a document a filter runs against.
type Target struct {
	ID   string
	Item ir.Value
}

// Match evaluates f against t. A nil filter matches everything.
func Match(f Filter, t Target, ev Evaluator) (bool, error) {
	switch node := f.(type) {
	case nil:
		return true, nil
	case Condition:
		actual, found := resolve(t, node.Field)
		return ev.Evaluate(node.Operator, actual, found, node.Value)
	case And:
		for _, child := range node.Filters {
			ok, err := Match(child, t, ev)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, child := range node.Filters {
			ok, err := Match(child, t, ev)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := Match(node.Filter, t, ev)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("unsupported filter node %T", f)
	}
}

func resolve(t Target, field string) (ir.Value, bool) {
	if field == IDField {
		return ir.String(t.ID), true
	}
	return ir.Lookup(t.Item, field)
}
