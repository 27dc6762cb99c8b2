package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ipm-pk/fingerprint/internal/backend"
	"github.com/ipm-pk/fingerprint/internal/status"
)

// chanNotifier delivers completion events to a channel for assertions.
type chanNotifier struct {
	events chan CompletionEvent
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{events: make(chan CompletionEvent, 8)}
}

func (n *chanNotifier) Completed(ev CompletionEvent) { n.events <- ev }

func (n *chanNotifier) wait(t *testing.T) CompletionEvent {
	t.Helper()
	select {
	case ev := <-n.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no completion event delivered")
		return CompletionEvent{}
	}
}

// countingSink counts status republishes.
type countingSink struct {
	n atomic.Int64
}

func (s *countingSink) PublishStatus(status.Status) { s.n.Add(1) }

func newTestDispatcher(t *testing.T, caps map[string]backend.Capability, ops []OperationSpec) (*Dispatcher, *TaskRegistry, *chanNotifier, *countingSink) {
	t.Helper()
	provider := &fakeProvider{
		name: "test",
		caps: caps,
		st:   status.Status{RunState: status.RunStateSystemReady},
	}
	dir := Link(&Definition{Operations: ops}, provider, LinkOptions{Prefer: ModeAsync})
	registry := NewTaskRegistry()
	notifier := newChanNotifier()
	sink := &countingSink{}
	return NewDispatcher(dir, provider, registry, notifier, sink, nil), registry, notifier, sink
}

func TestDispatcher_UnknownOperation(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t, map[string]backend.Capability{}, []OperationSpec{
		{Name: "GetStatus", ResultFields: []string{"RunState"}},
	})

	_, err := d.Handle(context.Background(), "SelfDestruct", nil)
	if !errors.Is(err, ErrNotLinked) {
		t.Errorf("err = %v, want ErrNotLinked", err)
	}
}

func TestDispatcher_SyncEnvelopeMerge(t *testing.T) {
	caps := map[string]backend.Capability{
		"get_status": {
			Run: okHandler(backend.Fields{"RunState": int8(1), "CurrentCommand": ""}),
			Estimate: func([]any) backend.PriorInfo {
				return backend.PriorInfo{
					ExpectedDurationMS: 10,
					TriggerResult:      backend.TriggerAccepted,
					ResultCode:         0,
				}
			},
		},
	}
	d, _, _, sink := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "GetStatus", ResultFields: []string{"RunState"}},
	})

	reply, err := d.Handle(context.Background(), "GetStatus", nil)
	if err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if reply.Mode != ModeSync {
		t.Errorf("mode = %v, want sync", reply.Mode)
	}

	// Acknowledgment fields and capability fields are both present.
	if reply.Fields["expected_duration_ms"] != float64(10) {
		t.Errorf("expected_duration_ms = %v", reply.Fields["expected_duration_ms"])
	}
	if reply.Fields["RunState"] != int8(1) {
		t.Errorf("RunState = %v", reply.Fields["RunState"])
	}
	if _, ok := reply.Fields["CurrentCommand"]; !ok {
		t.Error("sync reply should keep surplus result fields")
	}

	if sink.n.Load() != 1 {
		t.Errorf("status republishes = %d, want 1", sink.n.Load())
	}
}

func TestDispatcher_SyncDefaultAcknowledgment(t *testing.T) {
	caps := map[string]backend.Capability{
		"get_status": {Run: okHandler(backend.Fields{})},
	}
	d, _, _, _ := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "GetStatus", ResultFields: []string{"RunState"}},
	})

	reply, err := d.Handle(context.Background(), "GetStatus", nil)
	if err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if reply.Fields["expected_duration_ms"] != float64(-1) {
		t.Errorf("expected_duration_ms = %v, want -1 without estimator", reply.Fields["expected_duration_ms"])
	}
	if reply.Fields["trigger_result"] != int(backend.TriggerAccepted) {
		t.Errorf("trigger_result = %v", reply.Fields["trigger_result"])
	}
}

func TestDispatcher_SyncErrorPropagates(t *testing.T) {
	boom := errors.New("sensor offline")
	caps := map[string]backend.Capability{
		"get_status": {
			Run: func(context.Context, []any) (backend.Fields, error) {
				return nil, boom
			},
		},
	}
	d, _, _, _ := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "GetStatus", ResultFields: []string{"RunState"}},
	})

	_, err := d.Handle(context.Background(), "GetStatus", nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped sensor error", err)
	}
}

func TestDispatcher_AsyncReplyAndCompletion(t *testing.T) {
	release := make(chan struct{})
	caps := map[string]backend.Capability{
		"add_part": {
			Run: func(context.Context, []any) (backend.Fields, error) {
				<-release
				return backend.Fields{
					"ServiceExecutionResult": 0,
					"PartIDsOfDuplicates":    "",
					"InternalScratch":        42,
				}, nil
			},
			Estimate: func([]any) backend.PriorInfo {
				return backend.PriorInfo{ExpectedDurationMS: 2000, TriggerResult: backend.TriggerAccepted, ResultCode: 0}
			},
		},
	}
	d, registry, notifier, sink := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "AddPart", EventFields: []string{"ServiceExecutionResult", "PartIDsOfDuplicates"}},
	})

	reply, err := d.Handle(context.Background(), "AddPart", []any{"DB1"})
	if err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if reply.Mode != ModeAsync {
		t.Fatalf("mode = %v, want async", reply.Mode)
	}
	if reply.TaskID == "" {
		t.Error("async reply has no task ID")
	}
	if reply.Fields["expected_duration_ms"] != float64(2000) {
		t.Errorf("expected_duration_ms = %v", reply.Fields["expected_duration_ms"])
	}
	if registry.Len() != 1 {
		t.Errorf("in-flight = %d, want 1 while capability runs", registry.Len())
	}

	close(release)
	ev := notifier.wait(t)

	if ev.Operation != "AddPart" || ev.TaskID != reply.TaskID {
		t.Errorf("event = %+v", ev)
	}
	if ev.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %v, want success", ev.Outcome)
	}
	if _, ok := ev.Fields["InternalScratch"]; ok {
		t.Error("event fields should be filtered to the declared shape")
	}
	if ev.Fields["ServiceExecutionResult"] != 0 {
		t.Errorf("ServiceExecutionResult = %v", ev.Fields["ServiceExecutionResult"])
	}

	waitForZero(t, registry)
	select {
	case extra := <-notifier.events:
		t.Errorf("second completion event delivered: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}

	// One republish at acceptance, one after the completion event.
	if sink.n.Load() != 2 {
		t.Errorf("status republishes = %d, want 2", sink.n.Load())
	}
}

func TestDispatcher_AsyncFailureBecomesErrorEvent(t *testing.T) {
	caps := map[string]backend.Capability{
		"add_part": {
			Run: func(context.Context, []any) (backend.Fields, error) {
				return nil, backend.ErrNotReady
			},
		},
	}
	d, registry, notifier, _ := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "AddPart", EventFields: []string{"ServiceExecutionResult"}},
	})

	if _, err := d.Handle(context.Background(), "AddPart", nil); err != nil {
		t.Fatalf("Handle error = %v, async failures must not surface here", err)
	}

	ev := notifier.wait(t)
	if ev.Outcome != OutcomeError {
		t.Errorf("outcome = %v, want error", ev.Outcome)
	}
	if ev.Message == "" {
		t.Error("error event has no message")
	}
	if ev.Fields[FieldExecutionResult] != 1 {
		t.Errorf("ServiceExecutionResult = %v, want 1 on error", ev.Fields[FieldExecutionResult])
	}
	waitForZero(t, registry)
}

func TestDispatcher_CompletionSeedsExecutionResult(t *testing.T) {
	// The capability returns no fields at all; the declared code must
	// still be set from the outcome.
	caps := map[string]backend.Capability{
		"reset_system": {Run: okHandler(backend.Fields{})},
	}
	d, registry, notifier, _ := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "ResetSystem", EventFields: []string{"ServiceExecutionResult"}},
	})

	if _, err := d.Handle(context.Background(), "ResetSystem", nil); err != nil {
		t.Fatalf("Handle error = %v", err)
	}

	ev := notifier.wait(t)
	if ev.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %v, want success", ev.Outcome)
	}
	if ev.Fields[FieldExecutionResult] != 0 {
		t.Errorf("ServiceExecutionResult = %v, want 0 on success", ev.Fields[FieldExecutionResult])
	}
	waitForZero(t, registry)
}

func TestDispatcher_CapabilityExecutionResultWins(t *testing.T) {
	caps := map[string]backend.Capability{
		"trace_part": {Run: okHandler(backend.Fields{"ServiceExecutionResult": 7})},
	}
	d, registry, notifier, _ := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "TracePart", EventFields: []string{"ServiceExecutionResult"}},
	})

	if _, err := d.Handle(context.Background(), "TracePart", nil); err != nil {
		t.Fatalf("Handle error = %v", err)
	}

	ev := notifier.wait(t)
	if ev.Fields[FieldExecutionResult] != 7 {
		t.Errorf("ServiceExecutionResult = %v, want the capability's own value", ev.Fields[FieldExecutionResult])
	}
	waitForZero(t, registry)
}

func TestDispatcher_ConcurrentAsyncCalls(t *testing.T) {
	caps := map[string]backend.Capability{
		"trace_part": {Run: okHandler(backend.Fields{"ServiceExecutionResult": 0})},
	}
	d, registry, notifier, _ := newTestDispatcher(t, caps, []OperationSpec{
		{Name: "TracePart", EventFields: []string{"ServiceExecutionResult"}},
	})

	const calls = 10
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Handle(context.Background(), "TracePart", nil); err != nil {
				t.Errorf("Handle error = %v", err)
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < calls; i++ {
		ev := notifier.wait(t)
		if seen[ev.TaskID] {
			t.Errorf("task %s completed twice", ev.TaskID)
		}
		seen[ev.TaskID] = true
	}
	waitForZero(t, registry)
}

// waitForZero waits for the registry to empty; removal happens just
// before the completion event is delivered, so a short poll suffices.
func waitForZero(t *testing.T, r *TaskRegistry) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Drain(ctx); err != nil {
		t.Fatalf("registry did not empty: %v", err)
	}
}
