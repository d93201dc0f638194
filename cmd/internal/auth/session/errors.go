package session

import "errors"

var (
	// ErrInvalidToken is returned when a token fails signature verification,
	// carries unusable claims, or is no longer present in the token set.
	// The three cases are deliberately indistinguishable to callers.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
