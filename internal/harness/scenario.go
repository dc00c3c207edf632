package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query scenario: models, fixtures, queries and
// assertions over the final store.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE model files to compile.
	// Relative paths are resolved against the scenario file's directory.
	Specs []string `yaml:"specs,omitempty"`

	// Fixtures are written to the store before any query runs.
	Fixtures []Fixture `yaml:"fixtures,omitempty"`

	// Queries run in order against the seeded store.
	Queries []Query `yaml:"queries"`

	// Assertions validate query results and the final store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Fixture is one record to seed.
type Fixture struct {
	// Model names the model the record belongs to.
	Model string `yaml:"model"`

	// Key is optional. Without it the key comes from the model's key
	// attribute, or is content-addressed when the model has none.
	Key string `yaml:"key,omitempty"`

	// Attributes are converted to ir values; floats are rejected.
	Attributes map[string]any `yaml:"attributes"`
}

// Query is a named pipeline over one model.
type Query struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`

	// Keys, when set, is the starting set instead of every record.
	// It is normalized: duplicates after the first occurrence are dropped.
	Keys []string `yaml:"keys,omitempty"`

	Pipeline []Step  `yaml:"pipeline,omitempty"`
	Expect   *Expect `yaml:"expect,omitempty"`
}

// Step is one pipeline stage. Exactly one operation is set.
type Step struct {
	Scope string `yaml:"scope,omitempty"`
	Args  []any  `yaml:"args,omitempty"`

	Where []string `yaml:"where,omitempty"`

	Sort string `yaml:"sort,omitempty"`
	Desc bool   `yaml:"desc,omitempty"`

	Limit *int `yaml:"limit,omitempty"`

	// Nested pipelines start from every record of the query's model.
	// An empty list (union: []) means every record.
	Union      []Step `yaml:"union,omitempty"`
	Intersect  []Step `yaml:"intersect,omitempty"`
	Difference []Step `yaml:"difference,omitempty"`
}

// Step operation names.
const (
	StepScope      = "scope"
	StepWhere      = "where"
	StepSort       = "sort"
	StepLimit      = "limit"
	StepUnion      = "union"
	StepIntersect  = "intersect"
	StepDifference = "difference"
)

// ops returns the operations the step sets.
func (s Step) ops() []string {
	var ops []string
	if s.Scope != "" {
		ops = append(ops, StepScope)
	}
	if s.Where != nil {
		ops = append(ops, StepWhere)
	}
	if s.Sort != "" {
		ops = append(ops, StepSort)
	}
	if s.Limit != nil {
		ops = append(ops, StepLimit)
	}
	if s.Union != nil {
		ops = append(ops, StepUnion)
	}
	if s.Intersect != nil {
		ops = append(ops, StepIntersect)
	}
	if s.Difference != nil {
		ops = append(ops, StepDifference)
	}
	return ops
}

// Op returns the step's single operation, or "" when the step is malformed.
func (s Step) Op() string {
	ops := s.ops()
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Expect specifies the expected outcome of a query.
type Expect struct {
	// Keys is the exact result, in order.
	Keys []string `yaml:"keys,omitempty"`

	// Count is the expected result size.
	Count *int `yaml:"count,omitempty"`

	// First is matched (subset semantics) against the first result's
	// attributes. An empty map asserts there is no first result.
	First map[string]any `yaml:"first,omitempty"`

	// Error is a substring of the expected error, e.g. "UNSUPPORTED_OPERATION".
	Error string `yaml:"error,omitempty"`
}

// Assertion validates query results or the final store.
type Assertion struct {
	// Type is one of record_count, record, record_absent, query_contains,
	// query_order.
	Type string `yaml:"type"`

	// Model and Key address stored records (record_count, record, record_absent).
	Model string `yaml:"model,omitempty"`
	Key   string `yaml:"key,omitempty"`

	// Expect holds the expected attributes (record). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of records (record_count).
	Count int `yaml:"count,omitempty"`

	// Query names the query whose result is checked (query_contains, query_order).
	Query string `yaml:"query,omitempty"`

	// Keys are the keys to look for (query_contains, query_order).
	Keys []string `yaml:"keys,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount   = "record_count"
	AssertRecord        = "record"
	AssertRecordAbsent  = "record_absent"
	AssertQueryContains = "query_contains"
	AssertQueryOrder    = "query_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Spec paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadFixtures reads a YAML list of fixtures, as used by "prequel load".
func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}

	var fixtures []Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, f := range fixtures {
		if err := validateFixture(f); err != nil {
			return nil, fmt.Errorf("fixtures[%d]: %w", i, err)
		}
	}
	return fixtures, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Queries) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one query or assertion is required")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i, f := range s.Fixtures {
		if err := validateFixture(f); err != nil {
			return fmt.Errorf("fixtures[%d]: %w", i, err)
		}
	}

	names := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate query name %q", i, q.Name)
		}
		names[q.Name] = true
		if q.Model == "" {
			return fmt.Errorf("queries[%d]: model is required", i)
		}
		if err := validatePipeline(q.Pipeline, fmt.Sprintf("queries[%d].pipeline", i)); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, names); err != nil {
			return err
		}
	}

	return nil
}

func validateFixture(f Fixture) error {
	if f.Model == "" {
		return fmt.Errorf("model is required")
	}
	if f.Attributes == nil {
		return fmt.Errorf("attributes is required")
	}
	return nil
}

func validatePipeline(steps []Step, path string) error {
	for i, step := range steps {
		stepPath := fmt.Sprintf("%s[%d]", path, i)
		ops := step.ops()
		if len(ops) != 1 {
			return fmt.Errorf("%s: exactly one operation is required, got %v", stepPath, ops)
		}
		if step.Desc && ops[0] != StepSort {
			return fmt.Errorf("%s: desc is only valid with sort", stepPath)
		}
		if step.Args != nil && ops[0] != StepScope {
			return fmt.Errorf("%s: args are only valid with scope", stepPath)
		}
		if step.Limit != nil && *step.Limit < 0 {
			return fmt.Errorf("%s: limit must be non-negative", stepPath)
		}
		for _, nested := range []struct {
			op    string
			steps []Step
		}{{StepUnion, step.Union}, {StepIntersect, step.Intersect}, {StepDifference, step.Difference}} {
			if err := validatePipeline(nested.steps, stepPath+"."+nested.op); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, queries map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecordCount:
		if a.Model == "" {
			return fmt.Errorf("assertions[%d]: model is required for record_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	case AssertRecord, AssertRecordAbsent:
		if a.Model == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: model and key are required for %s", index, a.Type)
		}
		if a.Type == AssertRecord && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case AssertQueryContains, AssertQueryOrder:
		if !queries[a.Query] {
			return fmt.Errorf("assertions[%d]: unknown query %q", index, a.Query)
		}
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys list is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
