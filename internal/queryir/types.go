package queryir

import (
	"fmt"

	"github.com/roach88/prequel/internal/ir"
)

// Query is a sealed interface over query nodes.
type Query interface {
	queryNode()
}

// Predicate is a sealed interface over filter nodes.
type Predicate interface {
	predicateNode()
}

// Select selects the keys of one model whose records satisfy Filter.
//
// Semantics:
//
//	SELECT key FROM records WHERE model = <From> AND <Filter> ORDER BY seq, key
//
// A nil Filter selects every record of the model.
type Select struct {
	From   string    // model name
	Filter Predicate // nil = no filter
}

func (Select) queryNode() {}

// Operand is the right-hand side of a comparison: a literal or a parameter.
type Operand struct {
	Value ir.Value // literal (used when Param is empty)
	Param string   // scope parameter name
}

// Lit returns a literal operand.
func Lit(v ir.Value) Operand {
	return Operand{Value: v}
}

// Ref returns a parameter operand.
func Ref(param string) Operand {
	return Operand{Param: param}
}

// IsParam reports whether the operand refers to a scope parameter.
func (o Operand) IsParam() bool {
	return o.Param != ""
}

// resolve returns the operand's value given bound arguments.
func (o Operand) resolve(args Args) (ir.Value, error) {
	if !o.IsParam() {
		if o.Value == nil {
			return ir.Null{}, nil
		}
		return o.Value, nil
	}
	v, ok := args[o.Param]
	if !ok {
		return nil, fmt.Errorf("unbound parameter %q", o.Param)
	}
	return v, nil
}

// Args binds scope parameter names to argument values.
type Args map[string]ir.Value

// BindArgs pairs declared parameter names with positional arguments.
func BindArgs(params []string, args []ir.Value) (Args, error) {
	if len(params) != len(args) {
		return nil, fmt.Errorf("expected %d argument(s), got %d", len(params), len(args))
	}
	bound := make(Args, len(params))
	for i, p := range params {
		bound[p] = args[i]
	}
	return bound, nil
}

// Equals matches when the attribute equals the operand (null-safe).
type Equals struct {
	Field string
	Value Operand
}

func (Equals) predicateNode() {}

// NotEquals matches when the attribute differs from the operand (null-safe).
type NotEquals struct {
	Field string
	Value Operand
}

func (NotEquals) predicateNode() {}

// Less matches when a present attribute sorts before the operand.
type Less struct {
	Field string
	Value Operand
}

func (Less) predicateNode() {}

// Greater matches when a present attribute sorts after the operand.
type Greater struct {
	Field string
	Value Operand
}

func (Greater) predicateNode() {}

// Matches applies a regular expression to a string attribute.
// The operand must resolve to a string.
type Matches struct {
	Field   string
	Pattern Operand
}

func (Matches) predicateNode() {}

// And matches when every child matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or matches when any child matches. An empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not inverts its child.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}
