// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode classifies a submission failure. Codes are stable and end up in
// the persisted api_error record, so renaming one is a breaking change.
type ErrorCode string

const (
	ErrCodeValidation              ErrorCode = "VALIDATION_ERROR"
	ErrCodeSubmissionInProgress    ErrorCode = "SUBMISSION_IN_PROGRESS"
	ErrCodePaymentResolutionFailed ErrorCode = "PAYMENT_RESOLUTION_FAILED"
	ErrCodeCarrierRejected         ErrorCode = "CARRIER_REJECTED"
	ErrCodeCarrierUnavailable      ErrorCode = "CARRIER_UNAVAILABLE"
	ErrCodePersistence             ErrorCode = "PERSISTENCE_ERROR"
)

// Payment resolution failure kinds (§ details of PAYMENT_RESOLUTION_FAILED).
type ResolutionKind string

const (
	ResolutionVaultLookupFailed     ResolutionKind = "VAULT_LOOKUP_FAILED"
	ResolutionCorruptInstrument     ResolutionKind = "CORRUPT_INSTRUMENT"
	ResolutionVaultRetrievalFailed  ResolutionKind = "VAULT_RETRIEVAL_FAILED"
	ResolutionMissingEncryptedField ResolutionKind = "MISSING_ENCRYPTED_FIELD"
	ResolutionDecryptionFailed      ResolutionKind = "DECRYPTION_FAILED"
	ResolutionNoCurrentInstrument   ResolutionKind = "NO_CURRENT_INSTRUMENT"
)

// SubmissionError is the typed failure every pipeline step returns. Status
// is the HTTP-equivalent code the caller should receive: the carrier's own
// 4xx for business rejections, 500 for everything else.
type SubmissionError struct {
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Status    int         `json:"-"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	cause     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.cause
}

// AsSubmissionError extracts a *SubmissionError from an error chain.
func AsSubmissionError(err error) (*SubmissionError, bool) {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr, true
	}
	return nil, false
}

func NewValidationError(message string) *SubmissionError {
	return &SubmissionError{
		Code:      ErrCodeValidation,
		Message:   message,
		Status:    http.StatusUnprocessableEntity,
		Timestamp: time.Now().UTC(),
	}
}

func NewSubmissionInProgressError() *SubmissionError {
	return &SubmissionError{
		Code:      ErrCodeSubmissionInProgress,
		Message:   "a submission for this application is already in flight or the application is not in a submittable state",
		Status:    http.StatusConflict,
		Timestamp: time.Now().UTC(),
	}
}

func NewPaymentResolutionError(kind ResolutionKind, message string, cause error) *SubmissionError {
	return &SubmissionError{
		Code:      ErrCodePaymentResolutionFailed,
		Message:   message,
		Status:    http.StatusUnprocessableEntity,
		Details:   map[string]interface{}{"kind": string(kind)},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewCarrierRejectedError(statusCode int, body interface{}) *SubmissionError {
	return &SubmissionError{
		Code:      ErrCodeCarrierRejected,
		Message:   "carrier rejected the enrollment submission",
		Status:    statusCode,
		Details:   body,
		Timestamp: time.Now().UTC(),
	}
}

func NewCarrierUnavailableError(cause error) *SubmissionError {
	return &SubmissionError{
		Code:      ErrCodeCarrierUnavailable,
		Message:   "carrier enrollment service is unavailable",
		Status:    http.StatusInternalServerError,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewPersistenceError(cause error) *SubmissionError {
	return &SubmissionError{
		Code:      ErrCodePersistence,
		Message:   "failed to persist submission state",
		Status:    http.StatusInternalServerError,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ResolutionKindOf returns the resolution failure kind carried in Details,
// or "" when the error is not a payment resolution failure.
func ResolutionKindOf(err error) ResolutionKind {
	subErr, ok := AsSubmissionError(err)
	if !ok || subErr.Code != ErrCodePaymentResolutionFailed {
		return ""
	}
	details, ok := subErr.Details.(map[string]interface{})
	if !ok {
		return ""
	}
	kind, _ := details["kind"].(string)
	return ResolutionKind(kind)
}
