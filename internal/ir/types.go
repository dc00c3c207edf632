package ir

// ModelSpec is the compiled definition of a model: its attributes and the
// named scopes that KeySet chaining can invoke.
type ModelSpec struct {
	Name       string          `json:"name"`
	Purpose    string          `json:"purpose"`
	KeyAttr    string          `json:"key_attr,omitempty"` // attribute that mirrors the record key
	Attributes []AttributeSpec `json:"attributes"`
	Scopes     []ScopeSpec     `json:"scopes"`
}

// Attribute returns the named attribute spec.
func (m *ModelSpec) Attribute(name string) (AttributeSpec, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeSpec{}, false
}

// Scope returns the named scope spec.
func (m *ModelSpec) Scope(name string) (ScopeSpec, bool) {
	for _, s := range m.Scopes {
		if s.Name == name {
			return s, true
		}
	}
	return ScopeSpec{}, false
}

// AttributeSpec declares one attribute and its type.
// Type is one of "string", "int", "bool", "array", "object".
type AttributeSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// ScopeSpec is a named, declarative query on a model.
//
// A scope selects the records matching Where, restricted to the keys of
// every scope listed in Within (evaluated first, in order). Params names the
// positional arguments the scope accepts; conditions refer to them by name.
type ScopeSpec struct {
	Name   string     `json:"name"`
	Params []string   `json:"params,omitempty"`
	Within []string   `json:"within,omitempty"`
	Where  *Condition `json:"where,omitempty"`
}

// Condition is the serializable form of a scope filter.
//
// Exactly one shape is used per node:
//   - leaf: Field + Op + (Value | Param)
//   - All:  conjunction of children
//   - Any:  disjunction of children
//   - Not:  negation of a child
type Condition struct {
	Field string      `json:"field,omitempty"`
	Op    string      `json:"op,omitempty"` // eq | ne | lt | gt | matches
	Value Value       `json:"value,omitempty"`
	Param string      `json:"param,omitempty"`
	All   []Condition `json:"all,omitempty"`
	Any   []Condition `json:"any,omitempty"`
	Not   *Condition  `json:"not,omitempty"`
}

// Condition operators.
const (
	OpEq      = "eq"
	OpNe      = "ne"
	OpLt      = "lt"
	OpGt      = "gt"
	OpMatches = "matches"
)

// toValue renders the model as a Value for hashing.
func (m ModelSpec) toValue() Value {
	attrs := make(Array, len(m.Attributes))
	for i, a := range m.Attributes {
		attrs[i] = Object{"name": String(a.Name), "type": String(a.Type), "optional": Bool(a.Optional)}
	}
	scopes := make(Array, len(m.Scopes))
	for i, s := range m.Scopes {
		obj := Object{"name": String(s.Name), "params": stringsValue(s.Params), "within": stringsValue(s.Within)}
		if s.Where != nil {
			obj["where"] = s.Where.toValue()
		}
		scopes[i] = obj
	}
	return Object{
		"name":       String(m.Name),
		"purpose":    String(m.Purpose),
		"key_attr":   String(m.KeyAttr),
		"attributes": attrs,
		"scopes":     scopes,
	}
}

func (c Condition) toValue() Value {
	obj := Object{}
	if c.Field != "" {
		obj["field"] = String(c.Field)
	}
	if c.Op != "" {
		obj["op"] = String(c.Op)
	}
	if c.Value != nil {
		obj["value"] = c.Value
	}
	if c.Param != "" {
		obj["param"] = String(c.Param)
	}
	if len(c.All) > 0 {
		obj["all"] = conditionsValue(c.All)
	}
	if len(c.Any) > 0 {
		obj["any"] = conditionsValue(c.Any)
	}
	if c.Not != nil {
		obj["not"] = c.Not.toValue()
	}
	return obj
}

func conditionsValue(cs []Condition) Array {
	arr := make(Array, len(cs))
	for i, c := range cs {
		arr[i] = c.toValue()
	}
	return arr
}

func stringsValue(ss []string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}
