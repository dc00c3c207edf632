package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/prequel/internal/ir"
)

// ResultSnapshot captures the query outcomes of a scenario execution.
// Serialized as canonical JSON for deterministic comparison.
type ResultSnapshot struct {
	ScenarioName string         `json:"scenario"`
	Queries      []QueryOutcome `json:"queries"`
}

// toValue converts the snapshot to an ir.Value for canonical JSON serialization.
func (s *ResultSnapshot) toValue() ir.Value {
	queries := make(ir.Array, len(s.Queries))
	for i, q := range s.Queries {
		keys := make(ir.Array, len(q.Keys))
		for j, k := range q.Keys {
			keys[j] = ir.String(k)
		}
		obj := ir.Object{
			"name":  ir.String(q.Name),
			"model": ir.String(q.Model),
			"keys":  keys,
		}
		if q.First != "" {
			obj["first"] = ir.String(q.First)
		}
		if q.Error != "" {
			obj["error"] = ir.String(q.Error)
		}
		queries[i] = obj
	}
	return ir.Object{
		"scenario": ir.String(s.ScenarioName),
		"queries":  queries,
	}
}

// MarshalSnapshot renders a result as the canonical JSON stored in golden files.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := ResultSnapshot{
		ScenarioName: scenarioName,
		Queries:      result.Queries,
	}
	return ir.MarshalCanonical(snapshot.toValue())
}

// RunWithGolden executes a scenario and compares its query outcomes against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcomes don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
