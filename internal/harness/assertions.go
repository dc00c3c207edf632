package harness

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/keyset"
	"github.com/roach88/prequel/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Keys     []string // Query result for context, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Keys != nil {
		fmt.Fprintf(&buf, "\nQuery result:\n")
		for i, k := range e.Keys {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, k)
		}
	}

	return buf.String()
}

// checkExpect compares a query outcome against its expect clause.
// The first-result attributes are checked separately, while the Instance
// is still at hand.
func checkExpect(expect *Expect, outcome QueryOutcome) []string {
	if expect == nil {
		if outcome.Error != "" {
			return []string{fmt.Sprintf("unexpected error: %s", outcome.Error)}
		}
		return nil
	}

	if expect.Error != "" {
		if outcome.Error == "" {
			return []string{fmt.Sprintf("expected error containing %q, got keys %v", expect.Error, outcome.Keys)}
		}
		if !strings.Contains(outcome.Error, expect.Error) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", expect.Error, outcome.Error)}
		}
		return nil
	}
	if outcome.Error != "" {
		return []string{fmt.Sprintf("unexpected error: %s", outcome.Error)}
	}

	var msgs []string
	if expect.Keys != nil && !slices.Equal(expect.Keys, outcome.Keys) {
		msgs = append(msgs, fmt.Sprintf("expected keys %v, got %v", expect.Keys, outcome.Keys))
	}
	if expect.Count != nil && *expect.Count != len(outcome.Keys) {
		msgs = append(msgs, fmt.Sprintf("expected count %d, got %d", *expect.Count, len(outcome.Keys)))
	}
	return msgs
}

// checkFirst matches the first result against expected attributes.
// An empty expectation asserts there is no first result.
func checkFirst(expected map[string]any, first keyset.Instance, found bool) string {
	if len(expected) == 0 {
		if found {
			return "expected no first result"
		}
		return ""
	}
	if !found {
		return fmt.Sprintf("expected first result with %s, got none", formatAttrs(expected))
	}
	if msg := matchAttrs(first, expected); msg != "" {
		return "first result: " + msg
	}
	return ""
}

// matchAttrs checks that a contains every expected attribute (subset match).
// Extra attributes are ignored. Returns "" on a match.
func matchAttrs(a keyset.Attributes, expected map[string]any) string {
	for _, name := range sortedNames(expected) {
		want, err := ir.FromAny(expected[name])
		if err != nil {
			return fmt.Sprintf("attribute %q: %v", name, err)
		}
		got := a.Attr(name)
		if !ir.Equal(got, want) {
			return fmt.Sprintf("attribute %q = %s, expected %s", name, formatValue(got), formatValue(want))
		}
	}
	return ""
}

// assertRecordCount checks how many records a model holds.
func assertRecordCount(ctx context.Context, reg *model.Registry, assertion Assertion) error {
	m, ok := reg.Model(assertion.Model)
	if !ok {
		return fmt.Errorf("record_count: unknown model %q", assertion.Model)
	}
	n, err := m.Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records of %s", assertion.Count, assertion.Model),
			Actual:   fmt.Sprintf("%d records", n),
		}
	}
	return nil
}

// assertRecord checks a stored record against expected attributes.
func assertRecord(ctx context.Context, reg *model.Registry, assertion Assertion) error {
	m, ok := reg.Model(assertion.Model)
	if !ok {
		return fmt.Errorf("record: unknown model %q", assertion.Model)
	}
	inst, err := m.Get(ctx, ir.Key(assertion.Key))
	if keyset.IsKeyNotFound(err) {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s[%s] with %s", assertion.Model, assertion.Key, formatAttrs(assertion.Expect)),
			Actual:   "record not found",
		}
	}
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if msg := matchAttrs(inst, assertion.Expect); msg != "" {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s with %s", inst, formatAttrs(assertion.Expect)),
			Actual:   msg,
		}
	}
	return nil
}

// assertRecordAbsent checks that no record is stored under the key.
func assertRecordAbsent(ctx context.Context, reg *model.Registry, assertion Assertion) error {
	m, ok := reg.Model(assertion.Model)
	if !ok {
		return fmt.Errorf("record_absent: unknown model %q", assertion.Model)
	}
	inst, err := m.Get(ctx, ir.Key(assertion.Key))
	if keyset.IsKeyNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("record_absent: %w", err)
	}
	return &AssertionError{
		Type:     AssertRecordAbsent,
		Expected: fmt.Sprintf("no record %s[%s]", assertion.Model, assertion.Key),
		Actual:   fmt.Sprintf("found %s", inst),
	}
}

// assertQueryContains checks that a query result holds every listed key.
func assertQueryContains(result *Result, assertion Assertion) error {
	outcome, ok := result.Outcome(assertion.Query)
	if !ok {
		return fmt.Errorf("query_contains: query %q did not run", assertion.Query)
	}
	for _, k := range assertion.Keys {
		if !slices.Contains(outcome.Keys, k) {
			return &AssertionError{
				Type:     AssertQueryContains,
				Expected: fmt.Sprintf("query %s to contain %s", assertion.Query, k),
				Actual:   "not found in result",
				Keys:     outcome.Keys,
			}
		}
	}
	return nil
}

// assertQueryOrder checks that keys appear in the specified order.
// Keys don't need to be consecutive (intervening keys are allowed).
func assertQueryOrder(result *Result, assertion Assertion) error {
	outcome, ok := result.Outcome(assertion.Query)
	if !ok {
		return fmt.Errorf("query_order: query %q did not run", assertion.Query)
	}

	positions := make(map[string]int, len(assertion.Keys))
	for _, k := range assertion.Keys {
		pos := slices.Index(outcome.Keys, k)
		if pos < 0 {
			return &AssertionError{
				Type:     AssertQueryOrder,
				Expected: fmt.Sprintf("all keys present: %v", assertion.Keys),
				Actual:   fmt.Sprintf("missing key: %s", k),
				Keys:     outcome.Keys,
			}
		}
		positions[k] = pos + 1 // 1-indexed for readability
	}

	for i := 1; i < len(assertion.Keys); i++ {
		prev := assertion.Keys[i-1]
		curr := assertion.Keys[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertQueryOrder,
				Expected: fmt.Sprintf("keys in order: %v", assertion.Keys),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Keys: outcome.Keys,
			}
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Registry *model.Registry
	Ctx      context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for record assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertQueryContains:
			err = assertQueryContains(result, assertion)
		case AssertQueryOrder:
			err = assertQueryOrder(result, assertion)
		case AssertRecordCount, AssertRecord, AssertRecordAbsent:
			if actx == nil || actx.Registry == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertRecordCount:
				err = assertRecordCount(actx.Ctx, actx.Registry, assertion)
			case AssertRecord:
				err = assertRecord(actx.Ctx, actx.Registry, assertion)
			default:
				err = assertRecordAbsent(actx.Ctx, actx.Registry, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}

	return msgs
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// formatAttrs creates a human-readable description of expected attributes.
func formatAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return "(no attributes)"
	}
	parts := make([]string, 0, len(attrs))
	for _, k := range sortedNames(attrs) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, attrs[k]))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
