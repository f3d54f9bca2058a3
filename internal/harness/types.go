package harness

import "github.com/roach88/marketledger/internal/ir"

// StepOutcome records what one step did.
type StepOutcome struct {
	Index    int    `json:"index"`
	Action   string `json:"action"`
	EntityID string `json:"entityId,omitempty"`

	// Error is the LedgerError code, empty on success.
	Error string `json:"error,omitempty"`

	Status   ir.Status `json:"status,omitempty"`
	Version  int64     `json:"version,omitempty"`
	Hash     string    `json:"hash,omitempty"`
	Verified *bool     `json:"verified,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion
	// matched.
	Pass bool `json:"pass"`

	// Steps holds one outcome per scenario step.
	Steps []StepOutcome `json:"steps"`

	// Log is the ledger after the last step, in append order.
	// Used for assertions and golden comparison.
	Log []ir.LedgerEntry `json:"log"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Log:    []ir.LedgerEntry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
