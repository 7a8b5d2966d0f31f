// Package apperrors provides code-tagged errors for the LIF gateway.
//
// Errors carry a Code (a closed enumeration, not a type hierarchy) plus a
// human-readable message and an optional wrapped cause. Services create or
// wrap errors with the appropriate code; the transport layer translates
// codes to HTTP statuses. Infrastructure facts (row missing, key conflict)
// are reported by stores via pkg/platform/sentinel and wrapped here.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for propagation policy and HTTP mapping.
type Code string

const (
	// CodeBadRequest marks validation failures: malformed fragment paths,
	// empty fragment lists, non-mapping fragment elements. Never retried.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks a missing entity (identity mapping, MDR record).
	CodeNotFound Code = "not_found"

	// CodeConflict marks identity-mapping uniqueness conflicts. Never
	// silently overwritten.
	CodeConflict Code = "conflict"

	// CodeUnsatisfiable marks a requested fragment path no configured
	// information source can serve. Recoverable: the caller chooses
	// partial-result-with-warning or hard failure.
	CodeUnsatisfiable Code = "unsatisfiable_fragment"

	// CodeUnavailable marks dispatch/submission failures. Retryable a
	// bounded number of times with backoff.
	CodeUnavailable Code = "unavailable"

	// CodeTimeout marks an exceeded job-poll or request deadline.
	CodeTimeout Code = "timeout"

	// CodeConfig marks configuration errors (missing environment variable,
	// unmapped orchestrator status). Fatal at startup or first use.
	CodeConfig Code = "config"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a code-tagged error with an optional wrapped cause.
type Error struct {
	code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Code returns the error's classification code.
func (e *Error) Code() Code { return e.code }

// New creates a code-tagged error.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf creates a code-tagged error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. Returns nil if err is nil.
func Wrap(err error, code Code, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: msg, err: err}
}

// CodeOf extracts the code from err, unwrapping as needed.
// Returns CodeInternal for untagged errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodeInternal
}

// ToHTTPStatus maps an error code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnsatisfiable:
		return http.StatusUnprocessableEntity
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeConfig, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
