package engine

import (
	"errors"
	"fmt"
)

// LedgerError represents a rejected or failed ledger operation.
//
// Ledger errors include:
//   - Precondition failures: caller is not the owner, wrong status, no evidence
//   - Lookups of unknown entities
//   - Concurrent writers racing for the same entity version
//   - Storage failures (wrapped in Err)
//
// A hash mismatch is never a LedgerError; it is a VerificationResult with
// Verified=false.
type LedgerError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EntityID identifies the affected listing, if any.
	EntityID string

	// Details names the precondition that failed and the values involved.
	Details map[string]string

	// Err is the underlying cause (storage or validation error).
	Err error
}

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeStorage indicates the underlying append or read failed.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"

	// ErrCodeNotFound indicates no CREATED entry exists for the entity.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnauthorized indicates the caller may not perform the operation.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeInvalidState indicates the entity is not in the required status.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeMissingEvidence indicates required documents or a reason are absent.
	ErrCodeMissingEvidence ErrorCode = "MISSING_EVIDENCE"

	// ErrCodeConflict indicates another writer appended first.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeInvalidPayload indicates the listing fields failed validation.
	ErrCodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
)

// Error implements the error interface.
func (e *LedgerError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntityID != "" {
		msg = fmt.Sprintf("%s (entity=%s)", msg, e.EntityID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first LedgerError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsNotFound returns true if the error is a NOT_FOUND ledger error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsUnauthorized returns true if the error is an UNAUTHORIZED ledger error.
func IsUnauthorized(err error) bool { return hasCode(err, ErrCodeUnauthorized) }

// IsInvalidState returns true if the error is an INVALID_STATE ledger error.
func IsInvalidState(err error) bool { return hasCode(err, ErrCodeInvalidState) }

// IsMissingEvidence returns true if the error is a MISSING_EVIDENCE ledger error.
func IsMissingEvidence(err error) bool { return hasCode(err, ErrCodeMissingEvidence) }

// IsConflict returns true if the error is a CONFLICT ledger error.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// IsStorageError returns true if the error is a STORAGE_ERROR ledger error.
func IsStorageError(err error) bool { return hasCode(err, ErrCodeStorage) }

// IsInvalidPayload returns true if the error is an INVALID_PAYLOAD ledger error.
func IsInvalidPayload(err error) bool { return hasCode(err, ErrCodeInvalidPayload) }

// NewNotFoundError creates a LedgerError for an unknown entity.
func NewNotFoundError(entityID string) *LedgerError {
	return &LedgerError{
		Code:     ErrCodeNotFound,
		Message:  "listing not found",
		EntityID: entityID,
	}
}

// NewUnauthorizedError creates a LedgerError for a caller/owner mismatch.
func NewUnauthorizedError(entityID, owner, caller string) *LedgerError {
	return &LedgerError{
		Code:     ErrCodeUnauthorized,
		Message:  "caller is not the listing owner",
		EntityID: entityID,
		Details: map[string]string{
			"owner":  owner,
			"caller": caller,
		},
	}
}

// NewInvalidStateError creates a LedgerError for a status precondition.
func NewInvalidStateError(entityID string, status, required string) *LedgerError {
	return &LedgerError{
		Code:     ErrCodeInvalidState,
		Message:  fmt.Sprintf("listing is %s, operation requires %s", status, required),
		EntityID: entityID,
		Details: map[string]string{
			"status":          status,
			"required_status": required,
		},
	}
}

// NewMissingEvidenceError creates a LedgerError for an absent evidence field.
func NewMissingEvidenceError(entityID, field string) *LedgerError {
	return &LedgerError{
		Code:     ErrCodeMissingEvidence,
		Message:  fmt.Sprintf("%s must not be empty", field),
		EntityID: entityID,
		Details: map[string]string{
			"field": field,
		},
	}
}

// NewConflictError creates a LedgerError for a lost version race.
func NewConflictError(entityID string, cause error) *LedgerError {
	return &LedgerError{
		Code:     ErrCodeConflict,
		Message:  "listing was modified concurrently",
		EntityID: entityID,
		Err:      cause,
	}
}

// NewStorageError creates a LedgerError wrapping a store failure.
func NewStorageError(entityID string, cause error) *LedgerError {
	return &LedgerError{
		Code:     ErrCodeStorage,
		Message:  "ledger storage failed",
		EntityID: entityID,
		Err:      cause,
	}
}

// NewInvalidPayloadError creates a LedgerError for rejected listing fields.
func NewInvalidPayloadError(entityID string, cause error) *LedgerError {
	return &LedgerError{
		Code:     ErrCodeInvalidPayload,
		Message:  "listing fields are invalid",
		EntityID: entityID,
		Err:      cause,
	}
}
