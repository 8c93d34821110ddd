package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRole is returned when the acting user may not perform the operation
	ErrRole = errors.New("operation not allowed for this user role")

	// ErrPastDue is returned when a scheduled booking is not in the future
	ErrPastDue = errors.New("can't create booking in past")

	// ErrNotFound is returned for unknown job or user ids
	ErrNotFound = errors.New("not found")

	// ErrAlreadyBooked is returned when a translator already has a booking at the due time
	ErrAlreadyBooked = errors.New("translator already booked at this time")

	// ErrAlreadyTaken is returned to the loser of a concurrent accept
	ErrAlreadyTaken = errors.New("job already accepted by another translator")

	// ErrTransitionNoOp signals that nothing was changed
	ErrTransitionNoOp = errors.New("transition did not change the job")

	// ErrStatusConflict is returned by a JobStore when the compare-and-set on
	// version or status fails, or a second active assignment would be created
	ErrStatusConflict = errors.New("job status changed concurrently")

	// ErrUnknownConsumerType is returned when a customer's consumer type maps to no job type
	ErrUnknownConsumerType = errors.New("unknown consumer type")

	// ErrInvalidInput is returned for malformed raw fields
	ErrInvalidInput = errors.New("invalid input")
)

// MissingFieldError names the first required field that was empty
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// UserMessage is the message shown to the customer
func (e *MissingFieldError) UserMessage() string {
	return "Du måste fylla in alla fält"
}

// PreconditionError is a user-facing refusal that leaves state untouched
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Message
}

// UserMessage is the message shown to the acting user
func (e *PreconditionError) UserMessage() string {
	return e.Message
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(msg string) error {
	return &PreconditionError{Message: msg}
}

// messageError attaches a user-facing message to a sentinel
type messageError struct {
	err error
	msg string
}

func (e *messageError) Error() string       { return e.err.Error() }
func (e *messageError) Unwrap() error       { return e.err }
func (e *messageError) UserMessage() string { return e.msg }

// WithMessage wraps err so UserMessage returns msg while errors.Is still matches err
func WithMessage(err error, msg string) error {
	return &messageError{err: err, msg: msg}
}

// UserMessage extracts a user-facing message from err, falling back to err.Error()
func UserMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	switch {
	case errors.Is(err, ErrPastDue):
		return "Can't create booking in past"
	case errors.Is(err, ErrRole):
		return "Translator cannot create booking"
	}
	return err.Error()
}
