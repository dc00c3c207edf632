package queryir

import (
	"fmt"
	"regexp"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/keyset"
)

// Eval compiles a predicate into a keyset.Predicate with args bound.
//
// Parameters are resolved and regular expressions compiled once, here, so
// the returned function does no allocation per record. A nil predicate
// compiles to nil, which KeySet operations treat as "no filter".
func Eval(p Predicate, args Args) (keyset.Predicate, error) {
	if p == nil {
		return nil, nil
	}
	return compile(p, args)
}

func compile(p Predicate, args Args) (keyset.Predicate, error) {
	switch n := p.(type) {
	case Equals:
		v, err := n.Value.resolve(args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			return ir.Equal(a.Attr(n.Field), v)
		}, nil

	case NotEquals:
		v, err := n.Value.resolve(args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			return !ir.Equal(a.Attr(n.Field), v)
		}, nil

	case Less:
		v, err := n.Value.resolve(args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			got := a.Attr(n.Field)
			return !ir.IsNull(got) && ir.Compare(got, v) < 0
		}, nil

	case Greater:
		v, err := n.Value.resolve(args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			got := a.Attr(n.Field)
			return !ir.IsNull(got) && ir.Compare(got, v) > 0
		}, nil

	case Matches:
		re, err := n.compilePattern(args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			s, ok := a.Attr(n.Field).(ir.String)
			return ok && re.MatchString(string(s))
		}, nil

	case And:
		preds, err := compileAll(n.Predicates, args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			for _, p := range preds {
				if !p(a) {
					return false
				}
			}
			return true
		}, nil

	case Or:
		preds, err := compileAll(n.Predicates, args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			for _, p := range preds {
				if p(a) {
					return true
				}
			}
			return false
		}, nil

	case Not:
		if n.Predicate == nil {
			return nil, fmt.Errorf("not: missing predicate")
		}
		inner, err := compile(n.Predicate, args)
		if err != nil {
			return nil, err
		}
		return func(a keyset.Attributes) bool {
			return !inner(a)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileAll(ps []Predicate, args Args) ([]keyset.Predicate, error) {
	out := make([]keyset.Predicate, len(ps))
	for i, p := range ps {
		if p == nil {
			return nil, fmt.Errorf("nil predicate at index %d", i)
		}
		c, err := compile(p, args)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// compilePattern resolves and compiles the regular expression operand.
func (m Matches) compilePattern(args Args) (*regexp.Regexp, error) {
	v, err := m.Pattern.resolve(args)
	if err != nil {
		return nil, err
	}
	s, ok := v.(ir.String)
	if !ok {
		return nil, fmt.Errorf("matches %s: pattern must be a string, got %T", m.Field, v)
	}
	re, err := regexp.Compile(string(s))
	if err != nil {
		return nil, fmt.Errorf("matches %s: %w", m.Field, err)
	}
	return re, nil
}
