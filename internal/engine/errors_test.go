package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: listing not found (entity=LIST-1)", NewNotFoundError("LIST-1").Error())
	assert.Equal(t, "STORAGE_ERROR: ledger storage failed: disk full", NewStorageError("", errDiskFull).Error())
}

func TestLedgerError_HelpersSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		err   error
		check func(error) bool
		code  ErrorCode
	}{
		{NewNotFoundError("x"), IsNotFound, ErrCodeNotFound},
		{NewUnauthorizedError("x", "a", "b"), IsUnauthorized, ErrCodeUnauthorized},
		{NewInvalidStateError("x", "SOLD", "LISTED"), IsInvalidState, ErrCodeInvalidState},
		{NewMissingEvidenceError("x", "documents"), IsMissingEvidence, ErrCodeMissingEvidence},
		{NewConflictError("x", nil), IsConflict, ErrCodeConflict},
		{NewStorageError("x", errDiskFull), IsStorageError, ErrCodeStorage},
		{NewInvalidPayloadError("x", errBadField), IsInvalidPayload, ErrCodeInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			wrapped := fmt.Errorf("command failed: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.Equal(t, tt.code, CodeOf(wrapped))
		})
	}

	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestLedgerError_Unwrap(t *testing.T) {
	err := NewStorageError("LIST-1", errDiskFull)
	assert.ErrorIs(t, err, errDiskFull)
}
