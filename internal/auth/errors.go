package auth

import "errors"

var (
	// ErrMissingAPIKey is returned when the request carries no API key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidAPIKey is returned when the presented key does not match.
	ErrInvalidAPIKey = errors.New("invalid API key")
)
