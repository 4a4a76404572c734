package calendar

import (
	"context"
	"errors"
	"fmt"
)

// TransportError is a failed call to the calendar backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the same call may succeed later: timeouts,
// cancellations and failures the backend marked as temporary.
func (e *TransportError) Retryable() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, context.Canceled) {
		return true
	}
	var t temporary
	return errors.As(e.Err, &t)
}
