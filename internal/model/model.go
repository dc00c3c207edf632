package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/prequel/internal/compiler"
	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/keyset"
	"github.com/roach88/prequel/internal/queryir"
	"github.com/roach88/prequel/internal/store"
)

// Model is a compiled model definition bound to a store. It implements
// keyset.Klass.
type Model struct {
	spec   ir.ModelSpec
	store  *store.Store
	mapper *Mapper
	scopes map[string]keyset.Scope
}

// New binds spec to st and compiles its declarative scopes. Scopes declared
// within each other are rejected, since resolving them never terminates.
func New(spec ir.ModelSpec, st *store.Store) (*Model, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cycles := compiler.AnalyzeScopeCycles(spec); len(cycles) > 0 {
		return nil, errors.New(cycles[0].Message)
	}
	m := &Model{
		spec:   spec,
		store:  st,
		scopes: make(map[string]keyset.Scope, len(spec.Scopes)),
	}
	m.mapper = &Mapper{model: m}

	attrs := m.attributeNames()
	for _, sc := range spec.Scopes {
		filter, err := queryir.FromCondition(sc.Where)
		if err != nil {
			return nil, fmt.Errorf("model %s scope %s: %w", spec.Name, sc.Name, err)
		}
		if err := queryir.Validate(filter, attrs, sc.Params); err != nil {
			return nil, fmt.Errorf("model %s scope %s: %w", spec.Name, sc.Name, err)
		}
		m.scopes[sc.Name] = m.declaredScope(sc, filter)
	}
	return m, nil
}

// Name returns the model name.
func (m *Model) Name() string { return m.spec.Name }

// Spec returns the compiled definition.
func (m *Model) Spec() ir.ModelSpec { return m.spec }

// Mapper returns the model's store-backed mapper.
func (m *Model) Mapper() *Mapper { return m.mapper }

// KeySet builds a KeySet of this model.
func (m *Model) KeySet(keys []ir.Key) *keyset.KeySet {
	return keyset.New(m.mapper, keys...)
}

// FromRecord wraps the record stored under key as an Instance. Records are
// validated when written, not when read.
func (m *Model) FromRecord(key ir.Key, rec ir.Record) (keyset.Instance, error) {
	return newInstance(m.Name(), key, rec), nil
}

// Scope looks up a declared or Go-defined scope.
func (m *Model) Scope(name string) (keyset.Scope, bool) {
	s, ok := m.scopes[name]
	return s, ok
}

// ScopeNames returns every scope name, sorted.
func (m *Model) ScopeNames() []string {
	names := make([]string, 0, len(m.scopes))
	for name := range m.scopes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefineScope registers a scope implemented in Go. Names are unique per
// model, declared scopes included.
func (m *Model) DefineScope(name string, fn keyset.Scope) error {
	if name == "" || fn == nil {
		return keyset.NewInvalidArgumentError("define scope", "name and function are required")
	}
	if _, exists := m.scopes[name]; exists {
		return keyset.NewInvalidArgumentError("define scope", fmt.Sprintf("%s already has a scope named %q", m.Name(), name))
	}
	m.scopes[name] = fn
	return nil
}

// declaredScope turns a ScopeSpec into a keyset.Scope: select matching keys
// from the store, then narrow by each enclosing scope in order.
func (m *Model) declaredScope(sc ir.ScopeSpec, filter queryir.Predicate) keyset.Scope {
	return func(_ *keyset.KeySet, args ...ir.Value) (*keyset.KeySet, error) {
		bound, err := queryir.BindArgs(sc.Params, args)
		if err != nil {
			return nil, keyset.NewInvalidArgumentError(sc.Name, err.Error())
		}

		keys, err := m.store.SelectKeys(context.Background(), queryir.Select{From: m.Name(), Filter: filter}, bound)
		if err != nil {
			return nil, fmt.Errorf("scope %s.%s: %w", m.Name(), sc.Name, err)
		}
		res := keyset.Frozen(m.mapper, keys)

		for _, within := range sc.Within {
			res, err = res.Call(within)
			if err != nil {
				return nil, fmt.Errorf("scope %s.%s within %s: %w", m.Name(), sc.Name, within, err)
			}
		}

		slog.Debug("scope resolved", "model", m.Name(), "scope", sc.Name, "keys", res.Size())
		return res, nil
	}
}

// All returns every key of the model in insertion order.
func (m *Model) All(ctx context.Context) (*keyset.KeySet, error) {
	keys, err := m.store.Keys(ctx, m.Name())
	if err != nil {
		return nil, err
	}
	return keyset.Frozen(m.mapper, keys), nil
}

// Call invokes a scope on the full model.
func (m *Model) Call(ctx context.Context, name string, args ...ir.Value) (*keyset.KeySet, error) {
	all, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	return all.Call(name, args...)
}

// Find returns the records matching pred. A nil pred returns every key.
func (m *Model) Find(ctx context.Context, pred keyset.Predicate) (*keyset.KeySet, error) {
	all, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	return all.Find(pred)
}

// First returns the first matching Instance in insertion order.
func (m *Model) First(ctx context.Context, pred keyset.Predicate) (keyset.Instance, bool, error) {
	all, err := m.All(ctx)
	if err != nil {
		return nil, false, err
	}
	return all.First(pred)
}

// Count returns the number of records, or of matching records when pred
// is non-nil.
func (m *Model) Count(ctx context.Context, pred keyset.Predicate) (int, error) {
	if pred == nil {
		return m.store.Count(ctx, m.Name())
	}
	all, err := m.All(ctx)
	if err != nil {
		return 0, err
	}
	return all.Count(pred)
}

// Get returns the Instance stored under key.
func (m *Model) Get(ctx context.Context, key ir.Key) (*Instance, error) {
	rec, err := m.store.Get(ctx, m.Name(), key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, keyset.NewKeyNotFoundError(m.Name(), key, err)
	}
	if err != nil {
		return nil, err
	}
	return newInstance(m.Name(), key, rec), nil
}

// Put validates and stores rec under key.
func (m *Model) Put(ctx context.Context, key ir.Key, rec ir.Record) error {
	if err := m.Validate(rec); err != nil {
		return err
	}
	if m.spec.KeyAttr != "" {
		if got := ir.Key(ir.Text(rec.Get(m.spec.KeyAttr))); got != key {
			return keyset.NewInvalidArgumentError("put",
				fmt.Sprintf("key %q does not match %s attribute %q", key, m.spec.KeyAttr, got))
		}
	}
	return m.store.Put(ctx, m.Name(), key, rec)
}

// Create validates and stores rec, deriving its key from the key attribute
// or generating one when the model has none.
func (m *Model) Create(ctx context.Context, rec ir.Record) (ir.Key, error) {
	if err := m.Validate(rec); err != nil {
		return "", err
	}
	if m.spec.KeyAttr == "" {
		return m.store.Insert(ctx, m.Name(), rec)
	}
	key := ir.Key(ir.Text(rec.Get(m.spec.KeyAttr)))
	if err := m.store.Put(ctx, m.Name(), key, rec); err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes the record stored under key and reports whether it existed.
func (m *Model) Delete(ctx context.Context, key ir.Key) (bool, error) {
	return m.store.Delete(ctx, m.Name(), key)
}

func (m *Model) attributeNames() []string {
	names := make([]string, len(m.spec.Attributes))
	for i, a := range m.spec.Attributes {
		names[i] = a.Name
	}
	return names
}
