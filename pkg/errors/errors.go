package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the ingestion subsystem deals in.
// Every per-message or per-connection failure is wrapped into one of these so
// supervisors can decide between reconnect, fixed delay, skip, and retry
// without string matching.
var (
	// ErrConnection covers transport failures on a provider connection.
	// Triggers reconnect with backoff, never crashes the process.
	ErrConnection = NewError("CONNECTION_ERROR", "provider connection failed")

	// ErrRateLimited means the provider pushed back. Retrying immediately is
	// certain to fail, so it maps to a longer fixed delay.
	ErrRateLimited = NewError("RATE_LIMITED", "provider rate limited")

	// ErrAuthFailed means credentials were rejected. Also a fixed long delay:
	// immediate retry cannot succeed, and repeated attempts can lock accounts.
	ErrAuthFailed = NewError("AUTH_FAILED", "provider authentication failed")

	// ErrNoCorrespondent means the sender matched no existing record. The
	// message is skipped and logged; no retry, no implicit record creation.
	ErrNoCorrespondent = NewError("NO_CORRESPONDENT", "no matching correspondent")

	// ErrDuplicate means the dedup store has already seen this message.
	// Expected steady-state noise, logged at low severity.
	ErrDuplicate = NewError("DUPLICATE", "message already ingested")

	// ErrExtraction means content normalization could not produce text. Never
	// fatal: the pipeline substitutes the sentinel body instead.
	ErrExtraction = NewError("EXTRACTION_FAILURE", "content extraction failed")

	// ErrPersistence means the record-store write failed. High severity; the
	// dedup key and cursor are not advanced so the next scan retries.
	ErrPersistence = NewError("PERSISTENCE_FAILURE", "record store write failed")

	// ErrInternal is the catch-all for unclassified failures, panics included.
	ErrInternal = NewError("INTERNAL_ERROR", "internal error")
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

// Error is a classified error with a stable code and an optional cause chain.
type Error struct {
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is match on the code, so wrapped copies compare equal to
// their sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	switch e.Code {
	case ErrConnection.Code, ErrPersistence.Code:
		return true
	case ErrRateLimited.Code, ErrAuthFailed.Code:
		// Retryable, but only after the fixed delay the supervisor applies.
		return true
	default:
		return false
	}
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}
	return e.Code == ErrNoCorrespondent.Code || e.Code == ErrDuplicate.Code
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	// Copy the map: the shallow struct copy would otherwise share it with the
	// sentinel, and concurrent supervisors wrapping the same sentinel would
	// race on the one global map.
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func codeIs(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsConnection(err error) bool     { return codeIs(err, ErrConnection.Code) }
func IsRateLimited(err error) bool    { return codeIs(err, ErrRateLimited.Code) }
func IsAuthFailed(err error) bool     { return codeIs(err, ErrAuthFailed.Code) }
func IsNoCorrespondent(err error) bool { return codeIs(err, ErrNoCorrespondent.Code) }
func IsDuplicate(err error) bool      { return codeIs(err, ErrDuplicate.Code) }
func IsPersistence(err error) bool    { return codeIs(err, ErrPersistence.Code) }
