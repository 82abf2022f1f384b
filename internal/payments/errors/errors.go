package errors

import "errors"

var (
	ErrMalformedPayload = errors.New("webhook payload is not valid JSON")

	ErrNoCorrelation = errors.New("webhook carries neither a booking id nor a checkout session id")
)
