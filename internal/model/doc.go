// Package model binds compiled model definitions to a record store and
// exposes them as KeySet klasses.
//
// A Model is the klass identity a KeySet carries: it names the model, owns
// the scope table consulted by KeySet.Call, and builds Instances from raw
// records. Its Mapper reads records from a store.Store.
//
// Scopes come from two places. Declarative scopes are compiled from the
// model's ir.ScopeSpec list: each one selects keys with a store query and
// then narrows the result by every scope it is declared within. Go code can
// add further scopes with DefineScope.
//
//	people, _ := reg.Model("Person")
//	ks, _ := people.Call(ctx, "stooges")
//	ks, _ = ks.Call("non_howards")
//	first, ok, _ := ks.First(nil)
package model
