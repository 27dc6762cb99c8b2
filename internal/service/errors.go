package service

import "errors"

// Domain errors for the service package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, service.ErrNotLinked) {
//	    // reply with a method-not-found outcome
//	}
var (
	// ErrBinding is returned when a declared operation has no matching
	// backend capability. Link-time, per operation, non-fatal.
	ErrBinding = errors.New("service: no backend capability for operation")

	// ErrClassification is returned when a declared operation has neither
	// a completion-event shape nor a sync-result shape. Link-time, per
	// operation, non-fatal.
	ErrClassification = errors.New("service: operation declares no result shape")

	// ErrNotLinked is returned when a call names an operation that is not
	// in the linked directory.
	ErrNotLinked = errors.New("service: operation not linked")

	// ErrDefinition is returned when the interface definition file cannot
	// be loaded or fails validation.
	ErrDefinition = errors.New("service: invalid interface definition")

	// ErrDrainTimeout is returned when Drain gives up before all
	// background tasks have completed.
	ErrDrainTimeout = errors.New("service: task drain timed out")
)
