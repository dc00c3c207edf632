package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/prequel/internal/ir"
)

// CompileModel parses a CUE value into a ModelSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Person: { ... }`)
//	spec, err := CompileModel(v.LookupPath(cue.ParsePath("model.Person")))
func CompileModel(v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{}

	// Model name is the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	purposeVal := v.LookupPath(cue.ParsePath("purpose"))
	if !purposeVal.Exists() {
		return nil, &CompileError{
			Field:   "purpose",
			Message: "purpose is required",
			Pos:     v.Pos(),
		}
	}
	purpose, err := purposeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Purpose = purpose

	keyVal := v.LookupPath(cue.ParsePath("key"))
	if keyVal.Exists() {
		key, err := keyVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.KeyAttr = key
	}

	spec.Attributes, err = parseAttributes(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Attributes) == 0 {
		return nil, &CompileError{
			Field:   "attributes",
			Message: "at least one attribute is required",
			Pos:     v.Pos(),
		}
	}

	spec.Scopes, err = parseScopes(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// CompileModels compiles every model under the top-level "model" field,
// in declaration order.
func CompileModels(root cue.Value) ([]ir.ModelSpec, error) {
	modelsVal := root.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, nil
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.ModelSpec
	for iter.Next() {
		spec, err := CompileModel(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// parseAttributes extracts attribute declarations. Optional CUE fields
// (name?: string) become optional attributes.
func parseAttributes(v cue.Value) ([]ir.AttributeSpec, error) {
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}

	iter, err := attrsVal.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []ir.AttributeSpec
	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, ir.AttributeSpec{
			Name:     iter.Selector().Unquoted(),
			Type:     typ,
			Optional: iter.IsOptional(),
		})
	}
	return attrs, nil
}

// parseScopes extracts declarative scopes.
func parseScopes(v cue.Value) ([]ir.ScopeSpec, error) {
	scopeVal := v.LookupPath(cue.ParsePath("scope"))
	if !scopeVal.Exists() {
		return nil, nil
	}

	iter, err := scopeVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var scopes []ir.ScopeSpec
	for iter.Next() {
		name := iter.Selector().Unquoted()
		sv := iter.Value()
		path := "scope." + name

		if err := checkFields(sv, path, "params", "within", "where"); err != nil {
			return nil, err
		}

		scope := ir.ScopeSpec{Name: name}

		if scope.Params, err = parseStrings(sv, "params", path); err != nil {
			return nil, err
		}
		if scope.Within, err = parseStrings(sv, "within", path); err != nil {
			return nil, err
		}

		whereVal := sv.LookupPath(cue.ParsePath("where"))
		if whereVal.Exists() {
			cond, err := parseCondition(whereVal, path+".where")
			if err != nil {
				return nil, err
			}
			scope.Where = &cond
		}

		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// conditionFields are the labels a condition struct may carry.
var conditionFields = []string{"field", "op", "value", "param", "all", "any", "not"}

// parseCondition parses one where-condition node. Shape rules (exactly
// one of leaf/all/any/not) are checked by Validate so that every problem
// is reported at once.
func parseCondition(v cue.Value, path string) (ir.Condition, error) {
	var c ir.Condition

	if err := checkFields(v, path, conditionFields...); err != nil {
		return c, err
	}

	var err error
	if c.Field, err = optionalString(v, "field"); err != nil {
		return c, err
	}
	if c.Op, err = optionalString(v, "op"); err != nil {
		return c, err
	}
	if c.Param, err = optionalString(v, "param"); err != nil {
		return c, err
	}

	if valueVal := v.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
		c.Value, err = cueToValue(valueVal)
		if err != nil {
			return c, err
		}
		if c.Value == nil {
			c.Value = ir.Null{}
		}
	}

	for _, junction := range []struct {
		label string
		dst   *[]ir.Condition
	}{{"all", &c.All}, {"any", &c.Any}} {
		listVal := v.LookupPath(cue.ParsePath(junction.label))
		if !listVal.Exists() {
			continue
		}
		list, err := listVal.List()
		if err != nil {
			return c, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			child, err := parseCondition(list.Value(), fmt.Sprintf("%s.%s[%d]", path, junction.label, i))
			if err != nil {
				return c, err
			}
			*junction.dst = append(*junction.dst, child)
		}
		if len(*junction.dst) == 0 {
			return c, &CompileError{
				Field:   path + "." + junction.label,
				Message: "must list at least one condition",
				Pos:     listVal.Pos(),
			}
		}
	}

	if notVal := v.LookupPath(cue.ParsePath("not")); notVal.Exists() {
		child, err := parseCondition(notVal, path+".not")
		if err != nil {
			return c, err
		}
		c.Not = &child
	}

	return c, nil
}

// checkFields rejects labels outside allowed, catching typos like "feild".
func checkFields(v cue.Value, path string, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		known := false
		for _, a := range allowed {
			if label == a {
				known = true
				break
			}
		}
		if !known {
			return &CompileError{
				Field:   path,
				Message: fmt.Sprintf("unknown field %q", label),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, label string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(label))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func parseStrings(v cue.Value, label, path string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(label))
	if !lv.Exists() {
		return nil, nil
	}
	list, err := lv.List()
	if err != nil {
		return nil, &CompileError{
			Field:   path + "." + label,
			Message: "must be a list of strings",
			Pos:     lv.Pos(),
		}
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// cueToValue converts a concrete CUE value to an ir.Value.
// Floats are forbidden; use int.
func cueToValue(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		list, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for list.Next() {
			elem, err := cueToValue(list.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: "value must be concrete",
			Pos:     v.Pos(),
		}
	}
}

// extractTypeName converts a CUE type to an attribute type string.
// Floats are forbidden; `_` declares an untyped attribute.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.TopKind:
		return "any", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
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

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
