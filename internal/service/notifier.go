package service

import (
	"time"

	"github.com/ipm-pk/fingerprint/internal/backend"
	"github.com/ipm-pk/fingerprint/internal/status"
)

// FieldExecutionResult is the conventional event field carrying the
// numeric outcome code. The wire contract sets it from the outcome on
// every completion: 0 for success, 1 for error.
const FieldExecutionResult = "ServiceExecutionResult"

// Outcome is the terminal result of an asynchronous operation.
type Outcome int

// Outcomes.
const (
	OutcomeSuccess Outcome = iota
	OutcomeError
)

// Code returns the wire code for the outcome: 0 success, 1 error.
func (o Outcome) Code() int {
	if o == OutcomeSuccess {
		return 0
	}
	return 1
}

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// CompletionEvent is the single terminal notification of one background
// task. Fields is the backend result filtered to the operation's declared
// event shape; for error outcomes Message carries the failure detail.
type CompletionEvent struct {
	Operation string
	TaskID    string
	Outcome   Outcome
	Message   string
	Fields    backend.Fields

	// Elapsed is the wall time the task ran, for history recording.
	Elapsed time.Duration
}

// Notifier receives completion events. Implemented by the MQTT server
// and any other consumer that renders events outward.
type Notifier interface {
	Completed(ev CompletionEvent)
}

// StatusSink receives device status snapshots, both from the periodic
// publisher and from the dispatcher's post-operation republish.
type StatusSink interface {
	PublishStatus(s status.Status)
}

// withOutcomeCode seeds the execution-result field from the outcome when
// the event shape declares it. A value the capability already produced
// wins over the seeded code.
func withOutcomeCode(declared []string, got backend.Fields, outcome Outcome) backend.Fields {
	seed := false
	for _, name := range declared {
		if name == FieldExecutionResult {
			seed = true
			break
		}
	}
	if !seed {
		return got
	}
	if _, ok := got[FieldExecutionResult]; ok {
		return got
	}
	out := make(backend.Fields, len(got)+1)
	for k, v := range got {
		out[k] = v
	}
	out[FieldExecutionResult] = outcome.Code()
	return out
}

// filterFields narrows a backend result to the declared event shape.
// Result fields outside the shape are dropped with a notice; declared
// fields the backend did not produce are skipped with a warning.
func filterFields(operation string, declared []string, got backend.Fields, log Logger) backend.Fields {
	out := make(backend.Fields, len(declared))
	for _, name := range declared {
		v, ok := got[name]
		if !ok {
			log.Warn("declared event field missing from result",
				"operation", operation, "field", name)
			continue
		}
		out[name] = v
	}
	for name := range got {
		if _, ok := out[name]; !ok {
			log.Info("result field not in declared event shape, dropped",
				"operation", operation, "field", name)
		}
	}
	return out
}
