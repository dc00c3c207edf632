package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/store"
)

// specHashMeta is the store metadata entry holding the loaded spec hash.
const specHashMeta = "spec_hash"

// Registry holds the models defined over one store.
type Registry struct {
	store    *store.Store
	models   map[string]*Model
	names    []string
	specHash string
}

// NewRegistry binds every spec to st.
//
// The spec hash is recorded in the store. Opening a store with different
// definitions than it was last used with logs a warning; records are left
// untouched.
func NewRegistry(ctx context.Context, st *store.Store, specs []ir.ModelSpec) (*Registry, error) {
	r := &Registry{store: st, models: make(map[string]*Model, len(specs))}

	for _, spec := range specs {
		if _, dup := r.models[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate model %q", spec.Name)
		}
		m, err := New(spec, st)
		if err != nil {
			return nil, err
		}
		r.models[spec.Name] = m
		r.names = append(r.names, spec.Name)
	}

	for _, spec := range specs {
		for _, sc := range spec.Scopes {
			for _, w := range sc.Within {
				if _, ok := spec.Scope(w); !ok {
					return nil, fmt.Errorf("model %s scope %s: within unknown scope %q", spec.Name, sc.Name, w)
				}
			}
		}
	}

	hash, err := ir.SpecHash(specs)
	if err != nil {
		return nil, err
	}
	r.specHash = hash

	prev, ok, err := st.GetMeta(ctx, specHashMeta)
	if err != nil {
		return nil, err
	}
	if ok && prev != hash {
		slog.Warn("model definitions changed since store was last used", "previous", prev, "current", hash)
	}
	if err := st.SetMeta(ctx, specHashMeta, hash); err != nil {
		return nil, err
	}

	slog.Debug("models registered", "count", len(r.names), "spec_hash", hash)
	return r, nil
}

// Model returns the named model.
func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Names returns model names in definition order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// SpecHash returns the content hash of the registered definitions.
func (r *Registry) SpecHash() string {
	return r.specHash
}

// Store returns the backing store.
func (r *Registry) Store() *store.Store {
	return r.store
}
