package backend

import "errors"

// Domain errors for the backend package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, backend.ErrInvalidArgument) {
//	    // handle bad call arguments
//	}
var (
	// ErrInvalidArgument is returned when a capability receives arguments
	// of the wrong count or type.
	ErrInvalidArgument = errors.New("backend: invalid argument")

	// ErrNotReady is returned when a mutating capability is invoked while
	// the device is not ready or is in an error state.
	ErrNotReady = errors.New("backend: system not ready, call ResetSystem first")

	// ErrDatabaseNotFound is returned when a part store query names a
	// database that does not exist.
	ErrDatabaseNotFound = errors.New("backend: part database not found")

	// ErrPartNotFound is returned when a part store removal names an entry
	// that does not exist.
	ErrPartNotFound = errors.New("backend: part not found")

	// ErrUnknownLevel is returned when an integration level name is not
	// recognised.
	ErrUnknownLevel = errors.New("backend: unknown integration level")
)
