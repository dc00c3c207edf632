// Package harness runs declarative query scenarios against the model layer.
//
// A scenario loads model definitions, seeds an in-memory store with
// fixtures, runs query pipelines and checks their results and the final
// store contents.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - models/person.cue
//	fixtures:
//	  - model: Person
//	    attributes: { handle: moe, name: "Moe Howard", born: 1897 }
//	queries:
//	  - name: non_howard_stooges
//	    model: Person
//	    pipeline:
//	      - scope: stooges
//	      - scope: non_howards
//	    expect:
//	      keys: [larry]
//	      first: { name: "Larry Fine" }
//	assertions:
//	  - type: record_count
//	    model: Person
//	    count: 4
//
// # Pipeline Steps
//
// Each query starts from every record of its model (or from the keys it
// lists) and applies steps in order. A step sets exactly one of:
//
//   - scope: call a named scope, with optional positional args
//   - where: filter with "field=value" style clauses (ANDed)
//   - sort: order by an attribute, descending when desc is set
//   - limit: keep the first n keys
//   - union, intersect, difference: combine with a nested pipeline
//
// # Assertion Types
//
//   - record_count: the store holds exactly count records of a model
//   - record: a stored record matches the expected attributes (subset match)
//   - record_absent: no record is stored under the key
//   - query_contains: a query result contains every listed key
//   - query_order: listed keys appear in this relative order in a query result
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory database. Fixtures without an
// explicit key take it from the model's key attribute, or a content-addressed
// key otherwise, so results are identical across runs and suitable for
// golden snapshot comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/stooges.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
