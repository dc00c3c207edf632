package keyset

import (
	"errors"

	"github.com/roach88/prequel/internal/ir"
)

var errMissing = errors.New("missing")

// fakeKlass is an in-memory model identity with a scope table.
type fakeKlass struct {
	name      string
	scopes    map[string]Scope
	mapper    *fakeMapper
	factories int // KeySet factory calls
}

func (k *fakeKlass) Name() string { return k.name }

func (k *fakeKlass) KeySet(keys []ir.Key) *KeySet {
	k.factories++
	return New(k.mapper, keys...)
}

func (k *fakeKlass) FromRecord(_ ir.Key, rec ir.Record) (Instance, error) {
	return fakeInstance(rec.Clone()), nil
}

func (k *fakeKlass) Scope(name string) (Scope, bool) {
	s, ok := k.scopes[name]
	return s, ok
}

// fakeMapper serves records from a map and counts lookups.
type fakeMapper struct {
	klass   *fakeKlass
	records map[ir.Key]ir.Record
	order   []ir.Key
	lookups int
	gets    int
}

func (m *fakeMapper) Klass() Klass { return m.klass }

func (m *fakeMapper) Record(key ir.Key) (ir.Record, error) {
	m.lookups++
	rec, ok := m.records[key]
	if !ok {
		return nil, NewKeyNotFoundError(m.klass.name, key, errMissing)
	}
	return rec, nil
}

func (m *fakeMapper) Get(key ir.Key) (Instance, error) {
	m.gets++
	rec, err := m.Record(key)
	if err != nil {
		return nil, err
	}
	return fakeInstance(rec.Clone()), nil
}

// all returns a KeySet over every record in insertion order.
func (m *fakeMapper) all() *KeySet {
	return New(m, m.order...)
}

type fakeInstance ir.Record

func (i fakeInstance) Attr(name string) ir.Value { return ir.Record(i).Get(name) }

// newStooges builds the four-stooge fixture used across tests.
func newStooges() *fakeMapper {
	m := &fakeMapper{records: map[ir.Key]ir.Record{}}
	m.klass = &fakeKlass{name: "Person", mapper: m, scopes: map[string]Scope{}}

	for _, p := range []struct{ key, name string }{
		{"curly", "Curly Howard"},
		{"larry", "Larry Fine"},
		{"moe", "Moe Howard"},
		{"shemp", "Shemp Howard"},
	} {
		m.records[ir.Key(p.key)] = ir.Record{"name": ir.String(p.name)}
		m.order = append(m.order, ir.Key(p.key))
	}

	m.klass.scopes["stooges"] = func(ks *KeySet, _ ...ir.Value) (*KeySet, error) {
		return m.all().FindByKey(func(k ir.Key) bool { return k != "shemp" }), nil
	}
	m.klass.scopes["non_howards"] = func(ks *KeySet, _ ...ir.Value) (*KeySet, error) {
		return m.all().Find(nameContains("Fine"))
	}
	m.klass.scopes["named"] = func(ks *KeySet, args ...ir.Value) (*KeySet, error) {
		if len(args) != 1 {
			return nil, NewInvalidArgumentError("named", "expects one argument")
		}
		return m.all().Find(func(a Attributes) bool { return ir.Equal(a.Attr("name"), args[0]) })
	}
	return m
}
