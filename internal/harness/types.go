package harness

// StepTrace is the compiled output of one step.
type StepTrace struct {
	Step     string         `json:"step"`
	Text     string         `json:"text,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Error    string         `json:"error,omitempty"` // compile error code
	Warnings []string       `json:"warnings,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched and replay was clean.
	Pass bool `json:"pass"`

	// Trace holds one entry per step, in order.
	Trace []StepTrace `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// toCanonical converts the trace to values canonical.Marshal accepts.
func (r *Result) toCanonical(name string) map[string]any {
	steps := make([]any, len(r.Trace))
	for i, s := range r.Trace {
		m := map[string]any{"step": s.Step}
		if s.Text != "" {
			m["text"] = s.Text
		}
		if len(s.Params) > 0 {
			m["params"] = s.Params
		}
		if s.Error != "" {
			m["error"] = s.Error
		}
		if len(s.Warnings) > 0 {
			m["warnings"] = s.Warnings
		}
		steps[i] = m
	}
	return map[string]any{
		"scenario": name,
		"trace":    steps,
	}
}
