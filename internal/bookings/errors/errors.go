package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrNotApplied means a conditional update matched the booking but not the
	// expected state, so nothing was written.
	ErrNotApplied = errors.New("booking state did not match the update condition")

	ErrUnknownUnit = errors.New("unit does not exist")

	ErrUnknownAgent = errors.New("agent does not exist")

	ErrInvalidPhone = errors.New("guest phone is not a valid mobile number")
)
