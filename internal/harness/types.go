package harness

// CaseResult is the observed outcome of one case.
type CaseResult struct {
	Name string `json:"name"`
	// Hex is the input to the decoder: the encoding of the case value, or
	// the case bytes.
	Hex string `json:"hex,omitempty"`
	// Decoded is the decoded value in value.Format notation.
	Decoded string `json:"decoded,omitempty"`
	// Error is the wire error code of a failed decode.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every case met its expectations.
	Pass bool `json:"pass"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
