package queryir

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/prequel/internal/ir"
)

// Validate checks a predicate against a model's attribute names and a
// scope's declared parameters. All problems are reported, joined.
func Validate(p Predicate, attributes, params []string) error {
	if p == nil {
		return nil
	}
	var errs []error
	walk(p, func(n Predicate) {
		switch leaf := n.(type) {
		case Equals:
			errs = append(errs, checkLeaf(leaf.Field, leaf.Value, attributes, params)...)
		case NotEquals:
			errs = append(errs, checkLeaf(leaf.Field, leaf.Value, attributes, params)...)
		case Less:
			errs = append(errs, checkLeaf(leaf.Field, leaf.Value, attributes, params)...)
			errs = append(errs, checkOrdered("lt", leaf.Field, leaf.Value)...)
		case Greater:
			errs = append(errs, checkLeaf(leaf.Field, leaf.Value, attributes, params)...)
			errs = append(errs, checkOrdered("gt", leaf.Field, leaf.Value)...)
		case Matches:
			errs = append(errs, checkLeaf(leaf.Field, leaf.Pattern, attributes, params)...)
			if !leaf.Pattern.IsParam() {
				s, ok := leaf.Pattern.Value.(ir.String)
				if !ok {
					errs = append(errs, fmt.Errorf("matches %s: pattern must be a string", leaf.Field))
				} else if _, err := regexp.Compile(string(s)); err != nil {
					errs = append(errs, fmt.Errorf("matches %s: %w", leaf.Field, err))
				}
			}
		case Not:
			if leaf.Predicate == nil {
				errs = append(errs, errors.New("not: missing predicate"))
			}
		}
	})
	return errors.Join(errs...)
}

func checkLeaf(field string, o Operand, attributes, params []string) []error {
	var errs []error
	if !slices.Contains(attributes, field) {
		errs = append(errs, fmt.Errorf("unknown attribute %q", field))
	}
	if o.IsParam() && !slices.Contains(params, o.Param) {
		errs = append(errs, fmt.Errorf("undeclared parameter %q", o.Param))
	}
	return errs
}

// checkOrdered rejects literal null in lt/gt, which could never match.
func checkOrdered(op, field string, o Operand) []error {
	if o.IsParam() {
		return nil
	}
	if o.Value == nil || ir.IsNull(o.Value) {
		return []error{fmt.Errorf("%s %s: null operand never matches", op, field)}
	}
	return nil
}
