package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrRequestBuild marks a failure constructing an HTTP request before any
// network I/O happened. Transport clients wrap it so Classify can
// distinguish "could not even send" from "sent but no response".
var ErrRequestBuild = errors.New("building request")

// Classify translates an arbitrary failure into a structured *Error. It is
// the sole error boundary used by every component.
//
// Rules, in priority order:
//  1. An existing *Error passes through unchanged (idempotent).
//  2. Timeout-like transport conditions become TIMEOUT_ERROR; a failure
//     constructing the request becomes API_REQUEST_FAILED; any other
//     transport failure with no received response becomes NETWORK_ERROR.
//     (Responses with an HTTP status are coded at receive time via
//     FromStatus and hit rule 1 here.)
//  3. Everything else becomes INTERNAL_SDK_ERROR, preserving the original
//     message.
func Classify(err error, method string, callCtx map[string]string) *Error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return de
	}

	out := classifyTransport(err)
	out.Method = method
	out.Context = redactContext(callCtx)
	out.Cause = err
	return out
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeTimeout, "request timed out")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(CodeTimeout, "request timed out")
	}

	if errors.Is(err, ErrRequestBuild) {
		return Errorf(CodeRequestFailed, "request could not be constructed: %v", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// A *url.Error from http.Client.Do means no response was received.
		return Errorf(CodeNetwork, "no response from backend: %v", urlErr.Err)
	}

	return NewError(CodeInternal, fmt.Sprintf("unexpected failure: %v", err))
}
