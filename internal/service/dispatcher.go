package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ipm-pk/fingerprint/internal/backend"
)

// Reply is the immediate answer to one operation call.
//
// For synchronous operations Fields is the acknowledgment envelope merged
// with the capability result. For asynchronous operations Fields is the
// acknowledgment alone and TaskID identifies the background task.
type Reply struct {
	Mode   ResponseMode
	Fields backend.Fields
	TaskID string
}

// Dispatcher routes operation calls through the linked directory.
//
// Handle is safe for concurrent use; serialization of mutating work is
// the provider's responsibility, not the dispatcher's.
type Dispatcher struct {
	dir      *Directory
	provider backend.Provider
	registry *TaskRegistry
	notifier Notifier
	states   StatusSink
	logger   Logger
}

// NewDispatcher creates a dispatcher over a linked directory.
//
// notifier receives completion events for asynchronous operations and
// must not be nil if the directory links any. states receives a status
// snapshot after every state-relevant step and may be nil. logger may be
// nil.
func NewDispatcher(dir *Directory, provider backend.Provider, registry *TaskRegistry, notifier Notifier, states StatusSink, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		dir:      dir,
		provider: provider,
		registry: registry,
		notifier: notifier,
		states:   states,
		logger:   logger,
	}
}

// Handle dispatches one call by protocol operation name.
//
// Unknown names return ErrNotLinked. Synchronous capability failures are
// returned to the caller wrapped; asynchronous ones never surface here,
// they become error-outcome completion events.
func (d *Dispatcher) Handle(ctx context.Context, name string, args []any) (Reply, error) {
	desc, ok := d.dir.Lookup(name)
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrNotLinked, name)
	}

	prior := backend.DefaultPriorInfo()
	if desc.Capability.Estimate != nil {
		prior = desc.Capability.Estimate(args)
	}

	if desc.Mode == ModeSync {
		return d.handleSync(ctx, desc, prior, args)
	}
	return d.handleAsync(ctx, desc, prior, args), nil
}

func (d *Dispatcher) handleSync(ctx context.Context, desc *OperationDescriptor, prior backend.PriorInfo, args []any) (Reply, error) {
	result, err := desc.Capability.Run(ctx, args)
	if err != nil {
		d.republish()
		return Reply{}, fmt.Errorf("executing %s: %w", desc.Name, err)
	}

	// The reply envelope is the acknowledgment overlaid with the result,
	// so it is always a superset of the declared sync shape.
	envelope := prior.Fields()
	for k, v := range result {
		envelope[k] = v
	}

	d.republish()
	return Reply{Mode: ModeSync, Fields: envelope}, nil
}

func (d *Dispatcher) handleAsync(ctx context.Context, desc *OperationDescriptor, prior backend.PriorInfo, args []any) Reply {
	task := d.registry.Register(desc.Name)
	d.logger.Debug("background task started",
		"operation", desc.Name, "task_id", task.ID)

	// The task outlives the request; keep its values, drop its deadline.
	runCtx := context.WithoutCancel(ctx)
	go d.runTask(runCtx, desc, task, args)

	d.republish()
	return Reply{Mode: ModeAsync, Fields: prior.Fields(), TaskID: task.ID}
}

// runTask executes one background capability call and delivers its
// completion event exactly once.
func (d *Dispatcher) runTask(ctx context.Context, desc *OperationDescriptor, task Task, args []any) {
	result, err := desc.Capability.Run(ctx, args)

	ev := CompletionEvent{
		Operation: desc.Name,
		TaskID:    task.ID,
		Elapsed:   time.Since(task.Started),
	}
	if err != nil {
		// Capability failures are captured here, never propagated raw.
		// The event still carries the declared execution-result code.
		ev.Outcome = OutcomeError
		ev.Message = err.Error()
		ev.Fields = withOutcomeCode(desc.Fields, backend.Fields{}, OutcomeError)
		d.logger.Error("background task failed",
			"operation", desc.Name, "task_id", task.ID, "error", err)
	} else {
		ev.Outcome = OutcomeSuccess
		ev.Fields = filterFields(desc.Name, desc.Fields,
			withOutcomeCode(desc.Fields, result, OutcomeSuccess), d.logger)
	}

	if !d.registry.Remove(task.ID) {
		// Already completed; never deliver a second event.
		return
	}
	if d.notifier != nil {
		d.notifier.Completed(ev)
	}
	d.republish()
}

// republish pushes a fresh status snapshot to the immediate sink.
func (d *Dispatcher) republish() {
	if d.states == nil {
		return
	}
	d.states.PublishStatus(d.provider.Status())
}
