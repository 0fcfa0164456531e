package harness

// CaseResult is the outcome of one case.
type CaseResult struct {
	Pattern  string `json:"pattern"`
	Expanded string `json:"expanded"` // after simple-search expansion
	Tree     string `json:"tree,omitempty"`
	Matches  []int  `json:"matches"`
	Error    string `json:"error,omitempty"` // compile error kind
	Pass     bool   `json:"pass"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every case and assertion passed.
	Pass bool `json:"pass"`

	Cases []CaseResult `json:"cases"`

	// Errors describes every failed case and assertion.
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

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
