package server

import "errors"

// Domain-specific errors for the protocol server.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfig is returned when a declared variable value cannot be
	// converted to a typed protocol value.
	ErrConfig = errors.New("server: malformed variable value")

	// ErrInvalidTopic is returned when a request arrives on a topic that
	// does not match the service request pattern.
	ErrInvalidTopic = errors.New("server: invalid request topic")

	// ErrInvalidRequest is returned when a request payload cannot be
	// decoded.
	ErrInvalidRequest = errors.New("server: invalid request payload")
)
