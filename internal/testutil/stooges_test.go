package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prequel/internal/ir"
)

func TestSeedStooges(t *testing.T) {
	st := OpenStore(t)
	SeedStooges(t, st)

	keys, err := st.Keys(context.Background(), "Person")
	require.NoError(t, err)
	assert.Equal(t, ir.Keys("curly", "larry", "moe", "shemp"), keys)
}

func TestPersonSpec_ScopesReferenceDeclaredAttributes(t *testing.T) {
	spec := PersonSpec()
	for _, sc := range spec.Scopes {
		for _, w := range sc.Within {
			_, ok := spec.Scope(w)
			assert.True(t, ok, "scope %s within unknown %s", sc.Name, w)
		}
	}
	_, ok := spec.Attribute(spec.KeyAttr)
	assert.True(t, ok)
}
