package retry

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by a Policy.
var (
	// ErrExhausted is returned when all retry attempts or the time budget are exhausted.
	ErrExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ExhaustedError carries the last underlying error of a call that outlived its
// retry budget.
type ExhaustedError struct {
	Policy   string
	Attempts int
	Elapsed  time.Duration
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempts in %s: %v",
		e.Policy, ErrExhausted, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Last)
}

// Unwrap exposes both ErrExhausted and the last error to errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Retryable is implemented by errors that know whether they are transient.
type Retryable interface {
	Retryable() bool
}

// IsRetryable is the default classifier: an error is retried only when some
// error in its chain reports itself as retryable.
func IsRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
