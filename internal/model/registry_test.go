package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/testutil"
)

func TestRegistry(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	note := ir.ModelSpec{Name: "Note", Attributes: []ir.AttributeSpec{{Name: "text", Type: "string"}}}
	reg, err := NewRegistry(ctx, st, []ir.ModelSpec{testutil.PersonSpec(), note})
	require.NoError(t, err)

	assert.Equal(t, []string{"Person", "Note"}, reg.Names())
	_, ok := reg.Model("Person")
	assert.True(t, ok)
	_, ok = reg.Model("Nope")
	assert.False(t, ok)
	assert.Same(t, st, reg.Store())

	stored, ok, err := st.GetMeta(ctx, specHashMeta)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reg.SpecHash(), stored)
	assert.Len(t, stored, 64)
}

func TestRegistry_UpdatesSpecHash(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	first, err := NewRegistry(ctx, st, []ir.ModelSpec{testutil.PersonSpec()})
	require.NoError(t, err)

	spec := testutil.PersonSpec()
	spec.Purpose = "changed"
	second, err := NewRegistry(ctx, st, []ir.ModelSpec{spec})
	require.NoError(t, err)
	assert.NotEqual(t, first.SpecHash(), second.SpecHash())

	stored, _, err := st.GetMeta(ctx, specHashMeta)
	require.NoError(t, err)
	assert.Equal(t, second.SpecHash(), stored)
}

func TestRegistry_Errors(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	_, err := NewRegistry(ctx, st, []ir.ModelSpec{testutil.PersonSpec(), testutil.PersonSpec()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate model "Person"`)

	spec := testutil.PersonSpec()
	spec.Scopes = append(spec.Scopes, ir.ScopeSpec{Name: "lost", Within: []string{"nowhere"}})
	_, err = NewRegistry(ctx, st, []ir.ModelSpec{spec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `within unknown scope "nowhere"`)
}

func TestRegistry_RejectsWithinCycle(t *testing.T) {
	st := testutil.OpenStore(t)

	spec := ir.ModelSpec{
		Name:       "P",
		Attributes: []ir.AttributeSpec{{Name: "name", Type: "string"}},
		Scopes: []ir.ScopeSpec{
			{Name: "a", Within: []string{"b"}},
			{Name: "b", Within: []string{"a"}},
		},
	}
	reg, err := NewRegistry(context.Background(), st, []ir.ModelSpec{spec})
	require.Error(t, err)
	assert.Nil(t, reg)
	assert.Contains(t, err.Error(), "scope cycle in P: a → b → a")
}
