package lake

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Op is a predicate comparison operator. The set mirrors what a document
// database natively supports for filtering.
type Op string

const (
	OpEq  Op = "$eq"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
	OpIn  Op = "$in"
)

// Validate checks if the Op is a valid operator.
func (op Op) Validate() error {
	switch op {
	case OpEq, OpGt, OpGte, OpLt, OpLte, OpIn:
		return nil
	default:
		return fmt.Errorf("unknown operator: %q", op)
	}
}

// Cond is one condition of a predicate: a dotted field path, an operator,
// and the value to compare against.
type Cond struct {
	Path  string
	Op    Op
	Value any
}

// Predicate is a typed filter tree over dotted field paths. Conditions are
// combined by implicit AND; an empty predicate matches everything.
//
// Predicates are built once, validated before any I/O, and then evaluated
// either by the backing store or in-process via Matches.
type Predicate struct {
	conds []Cond
}

// NewPredicate returns an empty predicate that matches every datum.
func NewPredicate() *Predicate {
	return &Predicate{}
}

// Where starts a predicate with a single condition.
func Where(path string, op Op, value any) *Predicate {
	return NewPredicate().And(path, op, value)
}

// And appends a condition and returns the predicate for chaining.
func (p *Predicate) And(path string, op Op, value any) *Predicate {
	p.conds = append(p.conds, Cond{Path: path, Op: op, Value: value})
	return p
}

// Eq appends an equality condition.
func (p *Predicate) Eq(path string, value any) *Predicate { return p.And(path, OpEq, value) }

// Gt appends a greater-than condition.
func (p *Predicate) Gt(path string, value any) *Predicate { return p.And(path, OpGt, value) }

// Gte appends a greater-or-equal condition.
func (p *Predicate) Gte(path string, value any) *Predicate { return p.And(path, OpGte, value) }

// Lt appends a less-than condition.
func (p *Predicate) Lt(path string, value any) *Predicate { return p.And(path, OpLt, value) }

// Lte appends a less-or-equal condition.
func (p *Predicate) Lte(path string, value any) *Predicate { return p.And(path, OpLte, value) }

// In appends a membership condition. The value must be a list.
func (p *Predicate) In(path string, values any) *Predicate { return p.And(path, OpIn, values) }

// Conds returns the predicate's conditions. Stores use this to plan the
// lookup (e.g. a derived_from equality hits the children index).
func (p *Predicate) Conds() []Cond {
	return p.conds
}

// Clone returns an independent copy. The query engine clones stage filters
// before appending the per-row derived_from constraint.
func (p *Predicate) Clone() *Predicate {
	if p == nil {
		return NewPredicate()
	}
	c := &Predicate{conds: make([]Cond, len(p.conds))}
	copy(c.conds, p.conds)
	return c
}

// Validate rejects malformed predicates before any I/O: empty paths,
// unknown operators, and $in conditions whose value is not a list.
func (p *Predicate) Validate() error {
	for i, c := range p.conds {
		if c.Path == "" {
			return fmt.Errorf("condition %d: field path cannot be empty", i)
		}
		if err := c.Op.Validate(); err != nil {
			return fmt.Errorf("condition %d (%s): %w", i, c.Path, err)
		}
		if c.Op == OpIn {
			k := reflect.ValueOf(c.Value).Kind()
			if k != reflect.Slice && k != reflect.Array {
				return fmt.Errorf("condition %d (%s): $in requires a list value", i, c.Path)
			}
		}
	}
	return nil
}

// Matches evaluates the predicate against a flattened datum document.
// A condition on a path that does not resolve never matches.
func (p *Predicate) Matches(doc map[string]any) bool {
	if p == nil {
		return true
	}
	for _, c := range p.conds {
		v, ok := lookupPath(doc, c.Path)
		if !ok {
			return false
		}
		if !c.matches(v) {
			return false
		}
	}
	return true
}

func (c Cond) matches(v any) bool {
	switch c.Op {
	case OpEq:
		return equalValues(v, c.Value)
	case OpGt, OpGte, OpLt, OpLte:
		cmp, ok := compareValues(v, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case OpIn:
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if equalValues(v, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// lookupPath resolves a dotted path ("metadata.camera.id") through nested
// string-keyed maps.
func lookupPath(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = doc
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// equalValues compares with numeric coercion so that an int64 stored value
// matches a float64 filter value (and vice versa), as a document database
// would.
func equalValues(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values when they are comparable: both numeric or
// both strings. Returns ok=false otherwise.
func compareValues(a, b any) (int, bool) {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aOK := a.(string)
	bs, bOK := b.(string)
	if aOK && bOK {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// PredicateFromMap builds a predicate from the document-database map form:
// keys are dotted paths, values are either a scalar (equality) or a map of
// operator to operand, e.g.
//
//	{"metadata.kind": "image", "metadata.score": {"$gte": 0.5}}
//
// Malformed input (an unknown $operator, a non-list $in operand) is
// rejected here, before any I/O.
func PredicateFromMap(m map[string]any) (*Predicate, error) {
	p := NewPredicate()

	// Map iteration order is random; sort paths so the built predicate is
	// deterministic.
	paths := make([]string, 0, len(m))
	for path := range m {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		switch v := m[path].(type) {
		case map[string]any:
			ops := make([]string, 0, len(v))
			for op := range v {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				p.And(path, Op(op), v[op])
			}
		default:
			p.Eq(path, v)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return p, nil
}
