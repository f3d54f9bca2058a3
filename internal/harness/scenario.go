package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a ledger scenario: a sequence of listing operations run
// against a fresh ledger, followed by assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SkipValidation disables the built-in listing schema.
	SkipValidation bool `yaml:"skip_validation,omitempty"`

	// Steps run in order. A step whose outcome differs from its expect
	// clause fails the scenario; later steps still run.
	Steps []Step `yaml:"steps"`

	// Assertions validate the ledger after all steps.
	// Supported types: entity, log_kinds, log_count, list, audit_clean
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one listing operation.
type Step struct {
	// Action is one of create, update, sell, delist, verify.
	Action string `yaml:"action"`

	// As is the caller id; Admin grants the admin role.
	As    string `yaml:"as,omitempty"`
	Admin bool   `yaml:"admin,omitempty"`

	// ID names the listing. Optional for create (ids are then generated
	// as LIST-0001, LIST-0002, ...), required otherwise.
	ID string `yaml:"id,omitempty"`

	// Fields are the listing fields (create) or changed fields (update).
	Fields map[string]interface{} `yaml:"fields,omitempty"`

	// IfVersion is the expected current version for update.
	IfVersion int64 `yaml:"if_version,omitempty"`

	// Documents and Buyer are used by sell.
	Documents []string `yaml:"documents,omitempty"`
	Buyer     string   `yaml:"buyer,omitempty"`

	// Reason is used by delist.
	Reason string `yaml:"reason,omitempty"`

	// Tamper overwrites projected fields before a verify step, simulating
	// a display that no longer matches the ledger.
	Tamper map[string]interface{} `yaml:"tamper,omitempty"`

	// Expect checks the outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
// Only set fields are checked.
type Expect struct {
	// Error is the expected LedgerError code, e.g. UNAUTHORIZED.
	Error string `yaml:"error,omitempty"`

	Status   string `yaml:"status,omitempty"`
	Version  int64  `yaml:"version,omitempty"`
	Hash     string `yaml:"hash,omitempty"`
	Verified *bool  `yaml:"verified,omitempty"`
}

// Assertion validates the final ledger.
type Assertion struct {
	// Type specifies the assertion type:
	// - "entity": Check a listing's projected state
	// - "log_kinds": Check the kinds of all entries in append order
	// - "log_count": Check the number of entries
	// - "list": Check the ids List returns for a filter, in order
	// - "audit_clean": Check that a full audit finds nothing
	Type string `yaml:"type"`

	// ID, Status, Version, Owner, Hash and Fields are used by entity.
	// Fields is a subset match.
	ID      string                 `yaml:"id,omitempty"`
	Status  string                 `yaml:"status,omitempty"`
	Version int64                  `yaml:"version,omitempty"`
	Owner   string                 `yaml:"owner,omitempty"`
	Hash    string                 `yaml:"hash,omitempty"`
	Fields  map[string]interface{} `yaml:"fields,omitempty"`

	// Kinds is the expected kind sequence (log_kinds).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected entry count (log_count).
	Count *int `yaml:"count,omitempty"`

	// Filter and IDs are used by list.
	Filter *ListFilter `yaml:"filter,omitempty"`
	IDs    []string    `yaml:"ids,omitempty"`
}

// ListFilter mirrors projection.Filter in YAML.
type ListFilter struct {
	Status          string `yaml:"status,omitempty"`
	Active          bool   `yaml:"active,omitempty"`
	IncludeDelisted bool   `yaml:"include_delisted,omitempty"`
	Owner           string `yaml:"owner,omitempty"`
}

// Step action constants.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionSell   = "sell"
	ActionDelist = "delist"
	ActionVerify = "verify"
)

// Assertion type constants.
const (
	AssertEntity     = "entity"
	AssertLogKinds   = "log_kinds"
	AssertLogCount   = "log_count"
	AssertList       = "list"
	AssertAuditClean = "audit_clean"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its action.
func validateStep(index int, st *Step) error {
	switch st.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case ActionCreate:
		if len(st.Fields) == 0 {
			return fmt.Errorf("steps[%d]: fields are required for create", index)
		}
	case ActionUpdate, ActionSell, ActionDelist, ActionVerify:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, st.Action)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}

	if len(st.Tamper) > 0 && st.Action != ActionVerify {
		return fmt.Errorf("steps[%d]: tamper is only valid for verify", index)
	}
	if st.Expect != nil && st.Expect.Verified != nil && st.Action != ActionVerify {
		return fmt.Errorf("steps[%d].expect: verified is only valid for verify", index)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEntity:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for entity", index)
		}
	case AssertLogKinds:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for log_kinds", index)
		}
	case AssertLogCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
	case AssertList:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids list is required for list (use [] for none)", index)
		}
	case AssertAuditClean:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
