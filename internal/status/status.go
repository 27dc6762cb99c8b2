package status

import "fmt"

// RunState describes what the device is currently doing.
//
// Values are stable wire codes: controllers read them as signed bytes from
// the protocol state variables, so the numeric assignments must not change.
type RunState int8

// RunState values.
const (
	// RunStateSystemReset is the transient state while a reset executes.
	RunStateSystemReset RunState = 0

	// RunStateSystemReady means the device accepts new commands.
	RunStateSystemReady RunState = 1

	// RunStateAcquiringImage means the sensor is capturing.
	RunStateAcquiringImage RunState = 2

	// RunStateCommandRunning means a command is processing (e.g. matching).
	RunStateCommandRunning RunState = 3

	// RunStateSystemError means the device refuses commands until reset.
	RunStateSystemError RunState = 4
)

// String returns a human-readable name for logging.
func (s RunState) String() string {
	switch s {
	case RunStateSystemReset:
		return "system_reset"
	case RunStateSystemReady:
		return "system_ready"
	case RunStateAcquiringImage:
		return "acquiring_image"
	case RunStateCommandRunning:
		return "command_running"
	case RunStateSystemError:
		return "system_error"
	default:
		return fmt.Sprintf("run_state(%d)", int8(s))
	}
}

// ResultState describes whether the last command produced a result.
type ResultState int8

// ResultState values.
const (
	// ResultStateUndefined means no result is available yet.
	ResultStateUndefined ResultState = 0

	// ResultStateReady means the last command's result is available.
	ResultStateReady ResultState = 1
)

// String returns a human-readable name for logging.
func (s ResultState) String() string {
	switch s {
	case ResultStateUndefined:
		return "result_undefined"
	case ResultStateReady:
		return "result_ready"
	default:
		return fmt.Sprintf("result_state(%d)", int8(s))
	}
}

// ErrorKind classifies the error condition the device is in, if any.
type ErrorKind int8

// ErrorKind values.
const (
	// ErrorKindNone means no error condition.
	ErrorKindNone ErrorKind = 0

	// ErrorKindIDDuplicateFound means AddPart found an existing part ID.
	ErrorKindIDDuplicateFound ErrorKind = 1

	// ErrorKindFPDuplicateFound means AddPart found an existing fingerprint.
	ErrorKindFPDuplicateFound ErrorKind = 2
)

// String returns a human-readable name for logging.
func (e ErrorKind) String() string {
	switch e {
	case ErrorKindNone:
		return "no_error"
	case ErrorKindIDDuplicateFound:
		return "id_duplicate_found"
	case ErrorKindFPDuplicateFound:
		return "fp_duplicate_found"
	default:
		return fmt.Sprintf("error_kind(%d)", int8(e))
	}
}

// Status is one immutable observation of the device status.
//
// Exactly one value of each field is active at any time. Copies are cheap;
// the struct is passed by value everywhere outside the Register.
type Status struct {
	RunState       RunState    `json:"run_state"`
	ResultState    ResultState `json:"result_state"`
	ErrorKind      ErrorKind   `json:"error_kind"`
	CurrentCommand string      `json:"current_command"`
}

// Variables returns the status as protocol state variables keyed by the
// declared variable name. This is the shape written through the protocol
// engine's attribute-write primitive.
func (s Status) Variables() map[string]any {
	return map[string]any{
		"RunState":       int8(s.RunState),
		"ResultState":    int8(s.ResultState),
		"ErrorType":      int8(s.ErrorKind),
		"CurrentCommand": s.CurrentCommand,
	}
}
