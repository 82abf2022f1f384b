package errors

import "errors"

var (
	ErrUnitNotFound = errors.New("unit not found")

	ErrAgentNotFound = errors.New("agent not found")

	ErrInvalidID = errors.New("invalid directory ID format")
)
