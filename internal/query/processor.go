package query

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/ir"
)

// PredicateFunc implements a custom operator.
type PredicateFunc func(actual ir.Value, found bool, expected ir.Value) (bool, error)

// Processor is the default Evaluator. It handles the standard operators
// and dispatches anything else to registered functions.
type Processor struct {
	custom map[Operator]PredicateFunc
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewProcessor creates a Processor. A nil logger is replaced by a no-op.
func NewProcessor(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		custom: make(map[Operator]PredicateFunc),
		logger: logger,
	}
}

// RegisterOperator adds or replaces a custom operator.
func (p *Processor) RegisterOperator(op Operator, fn PredicateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.custom[op] = fn
	p.logger.Debug("registered filter operator", zap.String("operator", string(op)))
}

// RegisterOperators registers several operators at once.
func (p *Processor) RegisterOperators(fns map[Operator]PredicateFunc) {
	for op, fn := range fns {
		p.RegisterOperator(op, fn)
	}
}

// Evaluate implements Evaluator.
func (p *Processor) Evaluate(op Operator, actual ir.Value, found bool, expected ir.Value) (bool, error) {
	if !op.IsStandard() {
		p.mu.RLock()
		fn, ok := p.custom[op]
		p.mu.RUnlock()
		if !ok {
			return false, fmt.Errorf("unregistered filter operator: %s", op)
		}
		return fn(actual, found, expected)
	}

	switch op {
	case OpExists:
		return found, nil
	case OpNotExists:
		return !found, nil
	case OpNeq:
		return !found || !ir.Equal(actual, expected), nil
	case OpNin:
		in, err := isIn(actual, expected)
		return !found || !in, err
	case OpNotContains:
		if !found {
			return true, nil
		}
		c, err := contains(actual, expected)
		return !c, err
	}

	if !found {
		return false, nil
	}

	switch op {
	case OpEq:
		return ir.Equal(actual, expected), nil
	case OpLt, OpLte, OpGt, OpGte:
		cmp, err := compare(actual, expected)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		switch op {
		case OpLt:
			return cmp < 0, nil
		case OpLte:
			return cmp <= 0, nil
		case OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case OpIn:
		return isIn(actual, expected)
	case OpContains:
		return contains(actual, expected)
	case OpStartsWith, OpEndsWith:
		s, okA := actual.(ir.String)
		prefix, okE := expected.(ir.String)
		if !okA || !okE {
			return false, nil
		}
		if op == OpStartsWith {
			return strings.HasPrefix(string(s), string(prefix)), nil
		}
		return strings.HasSuffix(string(s), string(prefix)), nil
	}
	return false, fmt.Errorf("unsupported operator: %s", op)
}

// compare orders numbers numerically and strings lexically.
func compare(a, b ir.Value) (int, error) {
	if as, ok := a.(ir.String); ok {
		if bs, ok := b.(ir.String); ok {
			return strings.Compare(string(as), string(bs)), nil
		}
	}
	af, okA := ToFloat64(a)
	bf, okB := ToFloat64(b)
	if !okA || !okB {
		return 0, fmt.Errorf("unsupported types for comparison between %s and %s", ir.KindOf(a), ir.KindOf(b))
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

func isIn(actual, expected ir.Value) (bool, error) {
	list, ok := expected.(ir.Array)
	if !ok {
		return false, fmt.Errorf("in: expected an array, got %s", ir.KindOf(expected))
	}
	return list.Index(actual) >= 0, nil
}

func contains(actual, expected ir.Value) (bool, error) {
	switch a := actual.(type) {
	case ir.String:
		sub, ok := expected.(ir.String)
		if !ok {
			return false, nil
		}
		return strings.Contains(string(a), string(sub)), nil
	case ir.Array:
		return a.Index(expected) >= 0, nil
	case ir.Object:
		key, ok := expected.(ir.String)
		return ok && a.Has(string(key)), nil
	default:
		return false, nil
	}
}

// ToFloat64 converts numbers and numeric strings.
func ToFloat64(v ir.Value) (float64, bool) {
	switch val := v.(type) {
	case ir.Number:
		return float64(val), true
	case ir.String:
		f, err := strconv.ParseFloat(string(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
