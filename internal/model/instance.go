package model

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/prequel/internal/ir"
)

// Instance is a materialized record of a model.
type Instance struct {
	model string
	key   ir.Key
	attrs ir.Record
}

func newInstance(model string, key ir.Key, rec ir.Record) *Instance {
	return &Instance{model: model, key: key, attrs: rec.Clone()}
}

// Model returns the model name.
func (i *Instance) Model() string { return i.model }

// Key returns the key the record is stored under.
func (i *Instance) Key() ir.Key { return i.key }

// Attr returns the named attribute, or ir.Null{} when absent.
func (i *Instance) Attr(name string) ir.Value { return i.attrs.Get(name) }

// Record returns a copy of the instance's attributes.
func (i *Instance) Record() ir.Record { return i.attrs.Clone() }

func (i *Instance) String() string {
	return fmt.Sprintf("%s[%s]", i.model, i.key)
}

// MarshalJSON renders {"key": ..., "attributes": {...}} for CLI output.
func (i *Instance) MarshalJSON() ([]byte, error) {
	attrs := make(map[string]any, len(i.attrs))
	for name, v := range i.attrs {
		attrs[name] = ir.ToAny(v)
	}
	return json.Marshal(struct {
		Key        string         `json:"key"`
		Attributes map[string]any `json:"attributes"`
	}{string(i.key), attrs})
}
