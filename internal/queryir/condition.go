package queryir

import (
	"fmt"
	"sort"

	"github.com/roach88/prequel/internal/ir"
)

// FromCondition converts a compiled scope condition into a predicate.
// A nil condition yields a nil predicate (no filter).
func FromCondition(c *ir.Condition) (Predicate, error) {
	if c == nil {
		return nil, nil
	}
	return fromCondition(*c, "where")
}

func fromCondition(c ir.Condition, path string) (Predicate, error) {
	shapes := 0
	if c.Field != "" || c.Op != "" {
		shapes++
	}
	if len(c.All) > 0 {
		shapes++
	}
	if len(c.Any) > 0 {
		shapes++
	}
	if c.Not != nil {
		shapes++
	}
	if shapes != 1 {
		return nil, fmt.Errorf("%s: condition must have exactly one of field/op, all, any, not", path)
	}

	switch {
	case len(c.All) > 0:
		preds, err := fromConditions(c.All, path+".all")
		if err != nil {
			return nil, err
		}
		return And{Predicates: preds}, nil
	case len(c.Any) > 0:
		preds, err := fromConditions(c.Any, path+".any")
		if err != nil {
			return nil, err
		}
		return Or{Predicates: preds}, nil
	case c.Not != nil:
		inner, err := fromCondition(*c.Not, path+".not")
		if err != nil {
			return nil, err
		}
		return Not{Predicate: inner}, nil
	}

	if c.Field == "" {
		return nil, fmt.Errorf("%s: field is required", path)
	}
	if c.Param != "" && c.Value != nil {
		return nil, fmt.Errorf("%s: value and param are mutually exclusive", path)
	}
	operand := Lit(c.Value)
	if c.Param != "" {
		operand = Ref(c.Param)
	}

	switch c.Op {
	case ir.OpEq:
		return Equals{Field: c.Field, Value: operand}, nil
	case ir.OpNe:
		return NotEquals{Field: c.Field, Value: operand}, nil
	case ir.OpLt:
		return Less{Field: c.Field, Value: operand}, nil
	case ir.OpGt:
		return Greater{Field: c.Field, Value: operand}, nil
	case ir.OpMatches:
		return Matches{Field: c.Field, Pattern: operand}, nil
	default:
		return nil, fmt.Errorf("%s: unknown operator %q", path, c.Op)
	}
}

func fromConditions(cs []ir.Condition, path string) ([]Predicate, error) {
	preds := make([]Predicate, len(cs))
	for i, c := range cs {
		p, err := fromCondition(c, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

// Params returns the sorted, distinct parameter names a predicate refers to.
func Params(p Predicate) []string {
	seen := map[string]bool{}
	walk(p, func(n Predicate) {
		var o Operand
		switch leaf := n.(type) {
		case Equals:
			o = leaf.Value
		case NotEquals:
			o = leaf.Value
		case Less:
			o = leaf.Value
		case Greater:
			o = leaf.Value
		case Matches:
			o = leaf.Pattern
		}
		if o.IsParam() {
			seen[o.Param] = true
		}
	})

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fields returns the sorted, distinct attribute names a predicate reads.
func Fields(p Predicate) []string {
	seen := map[string]bool{}
	walk(p, func(n Predicate) {
		switch leaf := n.(type) {
		case Equals:
			seen[leaf.Field] = true
		case NotEquals:
			seen[leaf.Field] = true
		case Less:
			seen[leaf.Field] = true
		case Greater:
			seen[leaf.Field] = true
		case Matches:
			seen[leaf.Field] = true
		}
	})

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// walk visits every node depth-first.
func walk(p Predicate, visit func(Predicate)) {
	if p == nil {
		return
	}
	visit(p)
	switch n := p.(type) {
	case And:
		for _, c := range n.Predicates {
			walk(c, visit)
		}
	case Or:
		for _, c := range n.Predicates {
			walk(c, visit)
		}
	case Not:
		walk(n.Predicate, visit)
	}
}
