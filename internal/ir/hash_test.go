package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKey_Deterministic(t *testing.T) {
	rec := Record{"name": String("Moe Howard")}
	k1, err := RecordKey("Person", rec)
	require.NoError(t, err)
	k2, err := RecordKey("Person", Record{"name": String("Moe Howard")})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, string(k1), 64)
}

func TestRecordKey_DomainSeparatesModels(t *testing.T) {
	rec := Record{"name": String("Moe Howard")}
	person, err := RecordKey("Person", rec)
	require.NoError(t, err)
	actor, err := RecordKey("Actor", rec)
	require.NoError(t, err)

	assert.NotEqual(t, person, actor)
}

func TestSpecHash_ChangesWithScopes(t *testing.T) {
	base := ModelSpec{Name: "Person", Attributes: []AttributeSpec{{Name: "name", Type: "string"}}}
	h1, err := SpecHash([]ModelSpec{base})
	require.NoError(t, err)

	withScope := base
	withScope.Scopes = []ScopeSpec{{
		Name:  "howards",
		Where: &Condition{Field: "name", Op: OpMatches, Value: String("Howard")},
	}}
	h2, err := SpecHash([]ModelSpec{withScope})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
