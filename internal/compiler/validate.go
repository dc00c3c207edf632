package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/prequel/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// ModelSpec errors (E101-E109)
	ErrModelPurposeEmpty   = "E101" // purpose is required
	ErrModelNoAttributes   = "E102" // at least one attribute required
	ErrInvalidModelName    = "E103" // model name must be an identifier
	ErrInvalidFieldType    = "E104" // invalid type string
	ErrDuplicateName       = "E105" // duplicate attribute/scope/model name
	ErrFloatTypeForbidden  = "E106" // float types not allowed
	ErrUndeclaredKeyAttr   = "E107" // key names an undeclared attribute
	ErrInvalidKeyAttrType  = "E108" // key attribute must be string or int
	ErrOptionalKeyAttr     = "E109" // key attribute cannot be optional

	// ScopeSpec errors (E110-E119)
	ErrUnknownAttribute    = "E110" // condition reads an undeclared attribute
	ErrInvalidOperator     = "E111" // unknown condition operator
	ErrMalformedCondition  = "E112" // condition shape is not leaf/all/any/not
	ErrUndeclaredParam     = "E113" // condition references an undeclared param
	ErrUnknownWithin       = "E114" // within names an undeclared scope
	ErrInvalidPattern      = "E115" // matches pattern does not compile
	ErrScopeCycle          = "E116" // scopes are nested within each other
	ErrWithinParameterized = "E117" // within names a scope that takes params
	ErrInvalidOperand      = "E118" // operand kind cannot match (null in lt/gt, non-string pattern)
	ErrDuplicateParam      = "E119" // param declared twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports a single ModelSpec or a slice of them.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ModelSpec:
		return validateModelSpec(spec)
	case ir.ModelSpec:
		return validateModelSpec(&spec)
	case []ir.ModelSpec:
		return validateModelSpecs(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateModelSpecs(specs []ir.ModelSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i := range specs {
		if seen[specs[i].Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("models[%d].name", i),
				Message: fmt.Sprintf("duplicate model name: %q", specs[i].Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[specs[i].Name] = true
		errs = append(errs, validateModelSpec(&specs[i])...)
	}
	return errs
}

// modelNamePattern matches model names: an uppercase identifier.
var modelNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

func validateModelSpec(spec *ir.ModelSpec) []ValidationError {
	var errs []ValidationError
	prefix := "model." + spec.Name

	// E103: model name
	if !modelNamePattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   prefix,
			Message: fmt.Sprintf("invalid model name %q, expected an identifier starting with an uppercase letter", spec.Name),
			Code:    ErrInvalidModelName,
		})
	}

	// E101: purpose is required
	if strings.TrimSpace(spec.Purpose) == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".purpose",
			Message: "purpose is required and must be non-empty",
			Code:    ErrModelPurposeEmpty,
		})
	}

	// E102: at least one attribute
	if len(spec.Attributes) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".attributes",
			Message: "at least one attribute is required",
			Code:    ErrModelNoAttributes,
		})
	}

	attrNames := make(map[string]bool)
	for i, a := range spec.Attributes {
		field := fmt.Sprintf("%s.attributes[%d]", prefix, i)
		if attrNames[a.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate attribute name: %q", a.Name),
				Code:    ErrDuplicateName,
			})
		}
		attrNames[a.Name] = true
		errs = append(errs, validateFieldType(a.Type, field+".type", a.Name)...)
	}

	errs = append(errs, validateKeyAttr(spec, prefix)...)

	scopeNames := make(map[string]bool)
	for i := range spec.Scopes {
		sc := &spec.Scopes[i]
		if scopeNames[sc.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.scope[%d]", prefix, i),
				Message: fmt.Sprintf("duplicate scope name: %q", sc.Name),
				Code:    ErrDuplicateName,
			})
		}
		scopeNames[sc.Name] = true
		errs = append(errs, validateScope(spec, sc, prefix+".scope."+sc.Name, attrNames)...)
	}

	// E116: nested scopes must form a DAG
	for _, cycle := range AnalyzeScopeCycles(*spec) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".scope",
			Message: cycle.Message,
			Code:    ErrScopeCycle,
		})
	}

	return errs
}

func validateKeyAttr(spec *ir.ModelSpec, prefix string) []ValidationError {
	if spec.KeyAttr == "" {
		return nil
	}
	field := prefix + ".key"
	a, ok := spec.Attribute(spec.KeyAttr)
	if !ok {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("key attribute %q is not declared", spec.KeyAttr),
			Code:    ErrUndeclaredKeyAttr,
		}}
	}

	var errs []ValidationError
	if a.Type != "string" && a.Type != "int" {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("key attribute %q must be string or int, got %s", a.Name, a.Type),
			Code:    ErrInvalidKeyAttrType,
		})
	}
	if a.Optional {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("key attribute %q cannot be optional", a.Name),
			Code:    ErrOptionalKeyAttr,
		})
	}
	return errs
}

func validateScope(spec *ir.ModelSpec, sc *ir.ScopeSpec, field string, attrs map[string]bool) []ValidationError {
	var errs []ValidationError

	params := make(map[string]bool)
	for _, p := range sc.Params {
		if params[p] {
			errs = append(errs, ValidationError{
				Field:   field + ".params",
				Message: fmt.Sprintf("duplicate param: %q", p),
				Code:    ErrDuplicateParam,
			})
		}
		params[p] = true
	}

	for _, w := range sc.Within {
		target, ok := spec.Scope(w)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".within",
				Message: fmt.Sprintf("unknown scope %q", w),
				Code:    ErrUnknownWithin,
			})
			continue
		}
		if len(target.Params) > 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".within",
				Message: fmt.Sprintf("scope %q takes params and cannot be used in within", w),
				Code:    ErrWithinParameterized,
			})
		}
	}

	if sc.Where != nil {
		errs = append(errs, validateCondition(*sc.Where, field+".where", attrs, params)...)
	}
	return errs
}

// validateCondition checks one condition node and its children.
func validateCondition(c ir.Condition, field string, attrs, params map[string]bool) []ValidationError {
	var errs []ValidationError

	isLeaf := c.Field != "" || c.Op != "" || c.Value != nil || c.Param != ""
	shapes := 0
	for _, used := range []bool{isLeaf, len(c.All) > 0, len(c.Any) > 0, c.Not != nil} {
		if used {
			shapes++
		}
	}
	if shapes != 1 {
		return []ValidationError{{
			Field:   field,
			Message: "condition must have exactly one of field/op, all, any, not",
			Code:    ErrMalformedCondition,
		}}
	}

	switch {
	case len(c.All) > 0:
		for i, child := range c.All {
			errs = append(errs, validateCondition(child, fmt.Sprintf("%s.all[%d]", field, i), attrs, params)...)
		}
		return errs
	case len(c.Any) > 0:
		for i, child := range c.Any {
			errs = append(errs, validateCondition(child, fmt.Sprintf("%s.any[%d]", field, i), attrs, params)...)
		}
		return errs
	case c.Not != nil:
		return validateCondition(*c.Not, field+".not", attrs, params)
	}

	// Leaf
	if c.Field == "" {
		errs = append(errs, ValidationError{Field: field, Message: "field is required", Code: ErrMalformedCondition})
	} else if !attrs[c.Field] {
		errs = append(errs, ValidationError{
			Field:   field + ".field",
			Message: fmt.Sprintf("unknown attribute %q", c.Field),
			Code:    ErrUnknownAttribute,
		})
	}

	if !isValidOperator(c.Op) {
		errs = append(errs, ValidationError{
			Field:   field + ".op",
			Message: fmt.Sprintf("invalid operator %q, must be one of eq, ne, lt, gt, matches", c.Op),
			Code:    ErrInvalidOperator,
		})
	}

	switch {
	case c.Param != "" && c.Value != nil:
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "value and param are mutually exclusive",
			Code:    ErrMalformedCondition,
		})
	case c.Param != "":
		if !params[c.Param] {
			errs = append(errs, ValidationError{
				Field:   field + ".param",
				Message: fmt.Sprintf("undeclared param %q", c.Param),
				Code:    ErrUndeclaredParam,
			})
		}
	default:
		errs = append(errs, validateOperand(c, field)...)
	}

	return errs
}

// validateOperand checks literal operands for kinds that can never match.
func validateOperand(c ir.Condition, field string) []ValidationError {
	switch c.Op {
	case ir.OpLt, ir.OpGt:
		if c.Value == nil || ir.IsNull(c.Value) {
			return []ValidationError{{
				Field:   field + ".value",
				Message: fmt.Sprintf("%s against null never matches", c.Op),
				Code:    ErrInvalidOperand,
			}}
		}
	case ir.OpMatches:
		s, ok := c.Value.(ir.String)
		if !ok {
			return []ValidationError{{
				Field:   field + ".value",
				Message: "matches pattern must be a string",
				Code:    ErrInvalidOperand,
			}}
		}
		if _, err := regexp.Compile(string(s)); err != nil {
			return []ValidationError{{
				Field:   field + ".value",
				Message: fmt.Sprintf("invalid pattern: %v", err),
				Code:    ErrInvalidPattern,
			}}
		}
	}
	return nil
}

// validateFieldType validates a type string, returning errors for invalid types and floats.
func validateFieldType(fieldType, fieldPath, fieldName string) []ValidationError {
	var errs []ValidationError

	// E104: check for valid type
	if !isValidType(fieldType) {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("invalid type %q for field %q", fieldType, fieldName),
			Code:    ErrInvalidFieldType,
		})
	}

	// E106: float forbidden (explicit check even if not in valid types)
	if isFloatType(fieldType) {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("float type forbidden for field %q, use int instead", fieldName),
			Code:    ErrFloatTypeForbidden,
		})
	}

	return errs
}

// isValidType checks if a type string is valid for an attribute.
func isValidType(t string) bool {
	validTypes := map[string]bool{
		"string": true,
		"int":    true,
		"bool":   true,
		"array":  true,
		"object": true,
		"any":    true,
	}
	return validTypes[t]
}

// isFloatType checks if a type string represents a float type.
func isFloatType(t string) bool {
	floatTypes := map[string]bool{
		"float":   true,
		"float32": true,
		"float64": true,
		"number":  true,
		"double":  true,
	}
	return floatTypes[t]
}

func isValidOperator(op string) bool {
	switch op {
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpGt, ir.OpMatches:
		return true
	}
	return false
}
