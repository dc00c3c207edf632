package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prequel/internal/ir"
)

func withinSpec(edges map[string][]string, order ...string) ir.ModelSpec {
	spec := ir.ModelSpec{Name: "Person"}
	for _, name := range order {
		spec.Scopes = append(spec.Scopes, ir.ScopeSpec{Name: name, Within: edges[name]})
	}
	return spec
}

func TestAnalyzeScopeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeScopeCycles(ir.ModelSpec{Name: "Person"}))
}

func TestAnalyzeScopeCycles_DAG(t *testing.T) {
	spec := withinSpec(map[string][]string{
		"early_howards": {"stooges", "howards"},
		"howards":       {"stooges"},
	}, "stooges", "howards", "early_howards")

	assert.Empty(t, AnalyzeScopeCycles(spec))
}

func TestAnalyzeScopeCycles_SelfLoop(t *testing.T) {
	spec := withinSpec(map[string][]string{"a": {"a"}}, "a")

	cycles := AnalyzeScopeCycles(spec)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0].Path)
	assert.Equal(t, "Person", cycles[0].Model)
	assert.Contains(t, cycles[0].Message, "Person.a is declared within itself")
}

func TestAnalyzeScopeCycles_ThreeNodeCycle(t *testing.T) {
	spec := withinSpec(map[string][]string{
		"c": {"a"},
		"a": {"b"},
		"b": {"c"},
	}, "c", "a", "b")

	cycles := AnalyzeScopeCycles(spec)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].Path)
	assert.Equal(t, "scope cycle in Person: a → b → c → a", cycles[0].Message)
}

func TestAnalyzeScopeCycles_IgnoresUndeclared(t *testing.T) {
	spec := withinSpec(map[string][]string{"a": {"ghost"}}, "a")
	assert.Empty(t, AnalyzeScopeCycles(spec))
}

func TestAnalyzeScopeCycles_TwoSeparateCycles(t *testing.T) {
	spec := withinSpec(map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"x": {"y"},
		"y": {"x"},
		"z": {"a"},
	}, "a", "b", "x", "y", "z")

	cycles := AnalyzeScopeCycles(spec)
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0].Path)
	assert.Equal(t, []string{"x", "y", "x"}, cycles[1].Path)
}
