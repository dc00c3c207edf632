package model

import (
	"errors"
	"fmt"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/keyset"
)

// Validate checks rec against the model's attribute declarations: every
// attribute is declared, required attributes are non-null, and values have
// the declared type. The key attribute must be a non-empty string or int.
func (m *Model) Validate(rec ir.Record) error {
	var errs []error

	for _, name := range rec.Names() {
		if _, ok := m.spec.Attribute(name); !ok {
			errs = append(errs, fmt.Errorf("unknown attribute %q", name))
		}
	}

	for _, a := range m.spec.Attributes {
		v := rec.Get(a.Name)
		if ir.IsNull(v) {
			if !a.Optional {
				errs = append(errs, fmt.Errorf("missing required attribute %q", a.Name))
			}
			continue
		}
		if !hasType(v, a.Type) {
			errs = append(errs, fmt.Errorf("attribute %q: expected %s, got %s", a.Name, a.Type, typeName(v)))
		}
	}

	if k := m.spec.KeyAttr; k != "" {
		switch v := rec.Get(k).(type) {
		case ir.String:
			if v == "" {
				errs = append(errs, fmt.Errorf("key attribute %q is empty", k))
			}
		case ir.Int:
		default:
			errs = append(errs, fmt.Errorf("key attribute %q must be a string or int", k))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return &keyset.Error{
			Code:    keyset.ErrCodeInvalidArgument,
			Op:      "validate",
			Klass:   m.Name(),
			Message: err.Error(),
			Err:     err,
		}
	}
	return nil
}

func hasType(v ir.Value, typ string) bool {
	switch typ {
	case "", "any":
		return true
	default:
		return typeName(v) == typ
	}
}

func typeName(v ir.Value) string {
	switch v.(type) {
	case ir.String:
		return "string"
	case ir.Int:
		return "int"
	case ir.Bool:
		return "bool"
	case ir.Array:
		return "array"
	case ir.Object:
		return "object"
	default:
		return "null"
	}
}
