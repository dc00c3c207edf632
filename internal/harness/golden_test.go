package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGoldenScenarios runs every scenario under testdata/scenarios and
// compares its query outcomes with testdata/golden/{name}.golden.
//
// Regenerate with:
//
//	go test ./internal/harness -run TestGoldenScenarios -update
func TestGoldenScenarios(t *testing.T) {
	tests := []string{"stooges", "films"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match its golden file")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot(t *testing.T) {
	result := NewResult()
	result.AddOutcome(QueryOutcome{Name: "howards", Model: "Person", Keys: []string{"curly", "moe"}, First: "curly"})
	result.AddOutcome(QueryOutcome{Name: "broken", Model: "Person", Keys: []string{}, Error: `UNSUPPORTED_OPERATION: undefined operation "x" for Person`})

	data, err := MarshalSnapshot("demo", result)
	require.NoError(t, err)

	want := `{"queries":[` +
		`{"first":"curly","keys":["curly","moe"],"model":"Person","name":"howards"},` +
		`{"error":"UNSUPPORTED_OPERATION: undefined operation \"x\" for Person","keys":[],"model":"Person","name":"broken"}` +
		`],"scenario":"demo"}`
	assert.Equal(t, want, string(data))
}

func TestMarshalSnapshot_Empty(t *testing.T) {
	data, err := MarshalSnapshot("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"queries":[],"scenario":"empty"}`, string(data))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/stooges.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "stooges", result))
}
