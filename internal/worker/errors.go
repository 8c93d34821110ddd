package worker

import (
	"context"
	"errors"
)

// ErrInvalidMessage marks a delivery that can never succeed
var ErrInvalidMessage = errors.New("invalid message")

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err should put the message back on the queue
func IsRetryable(err error) bool {
	if errors.Is(err, ErrInvalidMessage) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
