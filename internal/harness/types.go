package harness

// QueryOutcome is what one query produced.
type QueryOutcome struct {
	Name  string   `json:"name"`
	Model string   `json:"model"`
	Keys  []string `json:"keys"`

	// First is the key of the first result, if any.
	First string `json:"first,omitempty"`

	// Error is set when the pipeline failed; Keys is then empty.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Queries holds one outcome per query, in scenario order.
	// Used for query assertions and golden comparison.
	Queries []QueryOutcome `json:"queries"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Queries: []QueryOutcome{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOutcome records a query outcome.
func (r *Result) AddOutcome(o QueryOutcome) {
	r.Queries = append(r.Queries, o)
}

// Outcome returns the outcome of the named query.
func (r *Result) Outcome(name string) (QueryOutcome, bool) {
	for _, o := range r.Queries {
		if o.Name == name {
			return o, true
		}
	}
	return QueryOutcome{}, false
}
