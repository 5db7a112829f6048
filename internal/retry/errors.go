package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrTransient marks a failure that may succeed if the operation is repeated
	ErrTransient = errors.New("transient network error")

	// ErrMalformedData marks a failure that repeating the operation cannot fix
	ErrMalformedData = errors.New("malformed data")

	// ErrMaxRetriesExceeded is reported once every allowed attempt has failed
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// MaxRetriesError is returned when the retry budget is exhausted.
// It matches both ErrMaxRetriesExceeded and the last underlying failure.
type MaxRetriesError struct {
	Attempts int
	Last     error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrMaxRetriesExceeded, e.Attempts, e.Last)
}

func (e *MaxRetriesError) Unwrap() []error {
	return []error{ErrMaxRetriesExceeded, e.Last}
}

// IsTransient reports whether err looks like a timeout or connection failure
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedData) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
