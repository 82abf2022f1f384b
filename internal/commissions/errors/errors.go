package errors

import "errors"

var (
	ErrNotFound = errors.New("commission not found")

	ErrInvalidID = errors.New("invalid commission ID format")

	// ErrAlreadyExists is returned when a booking already has its commission.
	ErrAlreadyExists = errors.New("commission already exists for booking")

	ErrNotApplied = errors.New("commission state did not match the update condition")
)
