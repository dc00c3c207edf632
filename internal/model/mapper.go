package model

import (
	"context"
	"errors"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/keyset"
	"github.com/roach88/prequel/internal/store"
)

// Mapper resolves keys of one model against the store.
//
// keyset.Mapper lookups are synchronous and carry no context, so reads run
// under context.Background().
type Mapper struct {
	model *Model
}

// Klass returns the model.
func (mp *Mapper) Klass() keyset.Klass {
	return mp.model
}

// Record returns the raw record stored under key.
func (mp *Mapper) Record(key ir.Key) (ir.Record, error) {
	rec, err := mp.model.store.Get(context.Background(), mp.model.Name(), key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, keyset.NewKeyNotFoundError(mp.model.Name(), key, err)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the Instance stored under key.
func (mp *Mapper) Get(key ir.Key) (keyset.Instance, error) {
	rec, err := mp.Record(key)
	if err != nil {
		return nil, err
	}
	return mp.model.FromRecord(key, rec)
}
