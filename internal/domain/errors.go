// Package domain holds the core data model shared by every component:
// instruments, orders, and the structured error taxonomy all failures are
// normalized into.
package domain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrorCode enumerates the machine-readable failure taxonomy. Every failure
// surfaced to a caller carries exactly one of these.
type ErrorCode string

const (
	CodeInvalidParameter  ErrorCode = "INVALID_PARAMETER"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServerError       ErrorCode = "SERVER_ERROR"
	CodeTimeout           ErrorCode = "TIMEOUT_ERROR"
	CodeNetwork           ErrorCode = "NETWORK_ERROR"
	CodeRequestFailed     ErrorCode = "API_REQUEST_FAILED"
	CodeInternal          ErrorCode = "INTERNAL_SDK_ERROR"
	CodeEnvironment       ErrorCode = "ENVIRONMENT_ERROR"
)

// Error is the single structured error type surfaced by every public
// operation. It is created at the boundary where a failure is first observed
// and never mutated afterwards.
type Error struct {
	// ID is a unique identifier generated at construction so individual
	// failures can be correlated across logs.
	ID string

	Code    ErrorCode
	Message string

	// StatusCode is the HTTP status that produced this error, when the
	// failure originated from a backend response. Zero otherwise.
	StatusCode int

	// ResponseData carries the raw backend response body, when available.
	ResponseData string

	// Method names the public operation that observed the failure.
	Method string

	// Context holds redacted call parameters. Long identifiers are
	// truncated at construction; see RedactValue.
	Context map[string]string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s: %s: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the originating error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs a coded Error with a fresh id.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		ID:      uuid.NewString(),
		Code:    code,
		Message: message,
	}
}

// Errorf constructs a coded Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithMethod returns a copy of e tagged with the given operation name. The
// original is left untouched so shared sentinel-style errors stay immutable.
func (e *Error) WithMethod(method string) *Error {
	out := *e
	out.Method = method
	return &out
}

// WithContext returns a copy of e carrying the given parameters, each value
// passed through RedactValue.
func (e *Error) WithContext(ctx map[string]string) *Error {
	out := *e
	out.Context = redactContext(ctx)
	return &out
}

// CodeOf extracts the taxonomy code from any error. Non-domain errors report
// CodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FromStatus maps an HTTP response status to a coded Error carrying the
// status and raw body.
//
//	400 INVALID_PARAMETER   401 UNAUTHORIZED      403 FORBIDDEN
//	404 NOT_FOUND           429 RATE_LIMIT_EXCEEDED
//	5xx SERVER_ERROR        anything else API_REQUEST_FAILED
func FromStatus(statusCode int, body []byte) *Error {
	var code ErrorCode
	switch {
	case statusCode == http.StatusBadRequest:
		code = CodeInvalidParameter
	case statusCode == http.StatusUnauthorized:
		code = CodeUnauthorized
	case statusCode == http.StatusForbidden:
		code = CodeForbidden
	case statusCode == http.StatusNotFound:
		code = CodeNotFound
	case statusCode == http.StatusTooManyRequests:
		code = CodeRateLimitExceeded
	case statusCode >= 500:
		code = CodeServerError
	default:
		code = CodeRequestFailed
	}

	e := Errorf(code, "backend returned HTTP %d", statusCode)
	e.StatusCode = statusCode
	e.ResponseData = string(body)
	return e
}

// redactLimit is the length above which context values are masked. Wallet
// addresses (42 chars) and ERC-1155 token ids (up to 78 digits) both exceed
// it; short human identifiers pass through untouched.
const redactLimit = 16

// RedactValue truncates long identifiers so wallet addresses and full market
// ids never land in logs verbatim.
func RedactValue(v string) string {
	if len(v) <= redactLimit {
		return v
	}
	return v[:8] + "..." + v[len(v)-4:]
}

func redactContext(ctx map[string]string) map[string]string {
	if ctx == nil {
		return nil
	}
	out := make(map[string]string, len(ctx))
	for k, v := range ctx {
		out[k] = RedactValue(v)
	}
	return out
}
