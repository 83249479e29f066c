package downloads

import (
	"errors"
	"fmt"
)

// Code is the closed set of failure codes the orchestrator surfaces. Raw
// infrastructure errors never leak past this boundary.
type Code string

const (
	CodeInvalidToken      Code = "INVALID_TOKEN"
	CodeExpiredAccess     Code = "EXPIRED_ACCESS"
	CodeSessionNotFound   Code = "SESSION_NOT_FOUND"
	CodePaymentRequired   Code = "PAYMENT_REQUIRED"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeTokenInvalid      Code = "TOKEN_INVALID"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeTokenAlreadyUsed  Code = "TOKEN_ALREADY_USED"
	CodePhotoNotFound     Code = "PHOTO_NOT_FOUND"
	CodeUnavailable       Code = "SERVICE_UNAVAILABLE"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// CodedError pairs a fixed code with a human-readable message. Stack traces
// and driver errors stay in the logs.
type CodedError struct {
	Code    Code
	Message string
	err     error
}

func (e *CodedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.err
}

// NewCodedError wraps an internal error under a fixed code.
func NewCodedError(code Code, message string, err error) *CodedError {
	return &CodedError{Code: code, Message: message, err: err}
}

// CodeOf extracts the code from an error chain, defaulting to INTERNAL_ERROR.
func CodeOf(err error) Code {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	var payment *PaymentRequiredError
	if errors.As(err, &payment) {
		return CodePaymentRequired
	}
	return CodeInternal
}

// QuotaStatus reports free-tier usage for a client on a session.
type QuotaStatus struct {
	FreeCount int   `json:"free_count"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

// PaymentRequiredError is a business outcome, not a fault: it carries the
// server-computed price the client must pay to proceed.
type PaymentRequiredError struct {
	AmountCents int64        `json:"amount_cents"`
	Currency    string       `json:"currency"`
	Mode        string       `json:"mode"`
	Quota       *QuotaStatus `json:"quota,omitempty"`
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment required: %d %s", e.AmountCents, e.Currency)
}
