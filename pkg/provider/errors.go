package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorClass represents a classification of provider errors.
type ErrorClass string

const (
	// ErrorClassNetwork represents connection failures (refused, reset, DNS).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents a remote call that ran out of time.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassRateLimit represents HTTP 429 or a local cool-down.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNotFound represents an unknown player or match.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassForbidden represents a private profile or rejected credentials.
	ErrorClassForbidden ErrorClass = "forbidden"

	// ErrorClassMalformed represents an unexpected payload shape.
	ErrorClassMalformed ErrorClass = "malformed"

	// ErrorClassClient represents any other 4xx.
	ErrorClassClient ErrorClass = "client"
)

// Retryable reports whether errors of this class are transient.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ErrorClassNetwork, ErrorClassTimeout, ErrorClassRateLimit, ErrorClassServer:
		return true
	default:
		return false
	}
}

// Sentinels matched by errors.Is against any *Error of the corresponding class.
var (
	ErrTransient = errors.New("transient provider error")
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrMalformed = errors.New("malformed response")
)

// Error is a classified failure of one remote call.
type Error struct {
	Op         string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s error", e.Class)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the class sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Class.Retryable()
	case ErrNotFound:
		return e.Class == ErrorClassNotFound
	case ErrForbidden:
		return e.Class == ErrorClassForbidden
	case ErrMalformed:
		return e.Class == ErrorClassMalformed
	}
	return false
}

// Retryable reports whether the failed call may succeed if repeated.
func (e *Error) Retryable() bool {
	return e.Class.Retryable()
}

// ClassifyStatus maps an HTTP status code to an error class. It returns the
// empty class for non-error statuses.
func ClassifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrorClassForbidden
	case code == http.StatusNotFound:
		return ErrorClassNotFound
	case code == http.StatusRequestTimeout:
		return ErrorClassTimeout
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// ClassifyTransport maps an error returned by an HTTP round trip.
func ClassifyTransport(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassNetwork
}

// ClassifyMessage maps the message of an API "status: error" envelope, which
// the remote service sends with HTTP 200.
func ClassifyMessage(msg string) ErrorClass {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "not found"):
		return ErrorClassNotFound
	case strings.Contains(m, "not allowed"), strings.Contains(m, "private"),
		strings.Contains(m, "unauthorized"), strings.Contains(m, "forbidden"):
		return ErrorClassForbidden
	case strings.Contains(m, "rate limit"), strings.Contains(m, "too many"):
		return ErrorClassRateLimit
	default:
		return ErrorClassMalformed
	}
}

// ClassOf returns the class of the first *Error in err's chain, or the empty
// class if there is none.
func ClassOf(err error) ErrorClass {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ""
}
