package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/prequel/internal/compiler"
	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/keyset"
	"github.com/roach88/prequel/internal/model"
	"github.com/roach88/prequel/internal/queryir"
	"github.com/roach88/prequel/internal/store"
)

// Harness is the scenario execution engine.
type Harness struct {
	registry *model.Registry
	logger   *slog.Logger
}

// Run executes a scenario against the models in its spec files.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile the scenario's model files
// 2. Create a fresh in-memory store and register the models
// 3. Seed fixtures
// 4. Run queries, checking expect clauses
// 5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	return RunWithModels(scenario, nil)
}

// RunWithModels executes a scenario against already compiled models, plus
// any listed in the scenario's own spec files.
func RunWithModels(scenario *Scenario, specs []ir.ModelSpec) (*Result, error) {
	if len(scenario.Specs) > 0 {
		own, err := compiler.CompileFiles(scenario.Specs...)
		if err != nil {
			return nil, fmt.Errorf("failed to compile specs: %w", err)
		}
		specs = append(append([]ir.ModelSpec(nil), specs...), own...)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("scenario %q defines no models", scenario.Name)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	reg, err := model.NewRegistry(ctx, st, specs)
	if err != nil {
		return nil, fmt.Errorf("failed to register models: %w", err)
	}

	h := &Harness{
		registry: reg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if _, err := Seed(ctx, reg, scenario.Fixtures); err != nil {
		return nil, fmt.Errorf("failed to seed fixtures: %w", err)
	}

	result := NewResult()
	if err := h.executeQueries(ctx, scenario.Queries, result); err != nil {
		return nil, fmt.Errorf("failed to execute queries: %w", err)
	}

	actx := &AssertionContext{
		Registry: reg,
		Ctx:      ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// Seed writes fixtures through their models and returns the keys used, in
// fixture order.
func Seed(ctx context.Context, reg *model.Registry, fixtures []Fixture) ([]ir.Key, error) {
	keys := make([]ir.Key, 0, len(fixtures))
	for i, f := range fixtures {
		m, ok := reg.Model(f.Model)
		if !ok {
			return nil, fmt.Errorf("fixture %d: unknown model %q", i, f.Model)
		}
		rec, err := ir.RecordFromMap(f.Attributes)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}

		key, err := fixtureKey(m, f, rec)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		if err := m.Put(ctx, key, rec); err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// fixtureKey picks the explicit key, then the key attribute, then a
// content-addressed key.
func fixtureKey(m *model.Model, f Fixture, rec ir.Record) (ir.Key, error) {
	if f.Key != "" {
		return ir.Key(f.Key), nil
	}
	if attr := m.Spec().KeyAttr; attr != "" {
		return ir.Key(ir.Text(rec.Get(attr))), nil
	}
	return ir.RecordKey(m.Name(), rec)
}

// executeQueries runs every query and validates its expect clause.
// Pipeline failures are outcomes, not harness errors: a query may expect one.
func (h *Harness) executeQueries(ctx context.Context, queries []Query, result *Result) error {
	for i, q := range queries {
		m, ok := h.registry.Model(q.Model)
		if !ok {
			return fmt.Errorf("query %d (%s): unknown model %q", i, q.Name, q.Model)
		}

		outcome := QueryOutcome{Name: q.Name, Model: q.Model, Keys: []string{}}
		ks, err := h.runQuery(ctx, m, q)
		if err == nil {
			outcome.Keys = keyStrings(ks.Keys())
			var first keyset.Instance
			var found bool
			first, found, err = ks.First(nil)
			if found {
				outcome.First = outcome.Keys[0]
			}
			if err == nil && q.Expect != nil && q.Expect.First != nil {
				if msg := checkFirst(q.Expect.First, first, found); msg != "" {
					result.AddError(fmt.Sprintf("query %s: %s", q.Name, msg))
				}
			}
		}
		if err != nil {
			outcome.Keys = []string{}
			outcome.First = ""
			outcome.Error = err.Error()
		}
		result.AddOutcome(outcome)

		for _, msg := range checkExpect(q.Expect, outcome) {
			result.AddError(fmt.Sprintf("query %s: %s", q.Name, msg))
		}

		h.logger.Info("query completed",
			"query", q.Name,
			"model", q.Model,
			"keys", len(outcome.Keys),
			"error", outcome.Error,
		)
	}
	return nil
}

// Evaluate runs one query against reg outside of a scenario.
func Evaluate(ctx context.Context, reg *model.Registry, q Query) (*keyset.KeySet, error) {
	m, ok := reg.Model(q.Model)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", q.Model)
	}
	if err := validatePipeline(q.Pipeline, "pipeline"); err != nil {
		return nil, err
	}
	h := &Harness{registry: reg, logger: slog.Default()}
	return h.runQuery(ctx, m, q)
}

// runQuery builds the starting set and applies the pipeline.
func (h *Harness) runQuery(ctx context.Context, m *model.Model, q Query) (*keyset.KeySet, error) {
	var start *keyset.KeySet
	if q.Keys != nil {
		keys := make([]ir.Key, len(q.Keys))
		for i, k := range q.Keys {
			keys[i] = ir.Key(k)
		}
		start = m.KeySet(keys)
	} else {
		all, err := m.All(ctx)
		if err != nil {
			return nil, err
		}
		start = all
	}
	return h.runPipeline(ctx, m, start, q.Pipeline)
}

// runPipeline applies steps to ks in order.
func (h *Harness) runPipeline(ctx context.Context, m *model.Model, ks *keyset.KeySet, steps []Step) (*keyset.KeySet, error) {
	var err error
	for i, step := range steps {
		switch step.Op() {
		case StepScope:
			args, convErr := convertArgs(step.Args)
			if convErr != nil {
				return nil, fmt.Errorf("step %d: %w", i, convErr)
			}
			ks, err = ks.Call(step.Scope, args...)
		case StepWhere:
			ks, err = applyWhere(ks, step.Where)
		case StepSort:
			cmp := keyset.ByAttr(step.Sort)
			if step.Desc {
				cmp = keyset.Reverse(cmp)
			}
			ks, err = ks.Sort(cmp)
		case StepLimit:
			ks, err = ks.Limit(*step.Limit)
		case StepUnion, StepIntersect, StepDifference:
			ks, err = h.combine(ctx, m, ks, step)
		default:
			return nil, fmt.Errorf("step %d: exactly one operation is required", i)
		}
		if err != nil {
			return nil, err
		}
	}
	return ks, nil
}

// combine evaluates a nested pipeline from every record of m and combines
// it with ks.
func (h *Harness) combine(ctx context.Context, m *model.Model, ks *keyset.KeySet, step Step) (*keyset.KeySet, error) {
	var nested []Step
	switch step.Op() {
	case StepUnion:
		nested = step.Union
	case StepIntersect:
		nested = step.Intersect
	default:
		nested = step.Difference
	}

	all, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	other, err := h.runPipeline(ctx, m, all, nested)
	if err != nil {
		return nil, err
	}

	switch step.Op() {
	case StepUnion:
		return ks.Union(other), nil
	case StepIntersect:
		return ks.Intersect(other), nil
	default:
		return ks.Difference(other), nil
	}
}

// applyWhere filters ks with "field=value" style clauses.
func applyWhere(ks *keyset.KeySet, clauses []string) (*keyset.KeySet, error) {
	filter, err := queryir.ParseWhere(clauses...)
	if err != nil {
		return nil, err
	}
	pred, err := queryir.Eval(filter, nil)
	if err != nil {
		return nil, err
	}
	return ks.Find(pred)
}

// convertArgs converts YAML-parsed scope arguments to ir values.
func convertArgs(args []any) ([]ir.Value, error) {
	out := make([]ir.Value, len(args))
	for i, a := range args {
		v, err := ir.FromAny(a)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func keyStrings(keys []ir.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
