package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/ipm-pk/fingerprint/internal/status"
)

// Fields holds the named result fields of one capability call.
//
// The protocol-facing shape may be narrower than a capability's result;
// surplus fields are dropped (with a logged notice) when the completion
// event is assembled.
type Fields map[string]any

// TriggerResult reports whether an operation request was accepted for
// execution. Wire codes match the protocol's ServiceTriggerResult.
type TriggerResult int

// TriggerResult values.
const (
	TriggerRejected TriggerResult = 0
	TriggerAccepted TriggerResult = 1
)

// PriorInfo is the immediate acknowledgment payload for an operation call.
//
// For asynchronous operations it is the entire immediate reply; the actual
// result arrives later through the completion event. Produced per call,
// never persisted.
type PriorInfo struct {
	// ExpectedDurationMS is the estimated execution time in milliseconds.
	// Negative means unknown.
	ExpectedDurationMS float64 `json:"expected_duration_ms"`

	// TriggerResult reports whether the call was accepted.
	TriggerResult TriggerResult `json:"trigger_result"`

	// ResultMessage carries optional operator-readable detail.
	ResultMessage string `json:"result_message"`

	// ResultCode is a protocol-defined numeric detail code.
	ResultCode int `json:"result_code"`
}

// DefaultPriorInfo is the conservative acknowledgment used when a
// capability has no estimator: unknown duration, accepted.
func DefaultPriorInfo() PriorInfo {
	return PriorInfo{
		ExpectedDurationMS: -1,
		TriggerResult:      TriggerAccepted,
		ResultMessage:      "",
		ResultCode:         1,
	}
}

// Fields renders the acknowledgment as named result fields, the form the
// dispatcher merges synchronous capability results into.
func (p PriorInfo) Fields() Fields {
	return Fields{
		"expected_duration_ms": p.ExpectedDurationMS,
		"trigger_result":       int(p.TriggerResult),
		"result_message":       p.ResultMessage,
		"result_code":          p.ResultCode,
	}
}

// HandlerFunc executes one backend capability with positional arguments.
//
// Mutating handlers serialize on their provider's exclusion lock and drive
// all status transitions before returning. A returned error surfaces as an
// execution failure (synchronous operations) or an error-outcome completion
// event (asynchronous operations).
type HandlerFunc func(ctx context.Context, args []any) (Fields, error)

// EstimatorFunc produces PriorInfo for a call before any backend mutation.
// Estimators run synchronously on the dispatch path and must not mutate
// device state.
type EstimatorFunc func(args []any) PriorInfo

// Capability is one entry of a provider's explicit dispatch table.
type Capability struct {
	// Run executes the operation. Never nil in a linked capability.
	Run HandlerFunc

	// Estimate is the optional pre-execution estimator.
	Estimate EstimatorFunc
}

// Provider is the contract every Fingerprint backend implements.
type Provider interface {
	// Name identifies the provider (echo, mockup) for logs and replies.
	Name() string

	// Status returns a lock-free snapshot of the current device status.
	Status() status.Status

	// Capabilities returns the provider's dispatch table keyed by backend
	// method name. The table is built once at construction; callers must
	// not mutate it.
	Capabilities() map[string]Capability
}

// Logger is the logging interface used by providers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// stringArg extracts args[i] as a string.
func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %d: expected string, got %T", ErrInvalidArgument, i, args[i])
	}
	return s, nil
}

// boolArg extracts args[i] as a bool.
func boolArg(args []any, i int) (bool, error) {
	if i >= len(args) {
		return false, fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}
	b, ok := args[i].(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %d: expected bool, got %T", ErrInvalidArgument, i, args[i])
	}
	return b, nil
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
