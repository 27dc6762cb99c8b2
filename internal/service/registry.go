package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one in-flight background operation.
type Task struct {
	// ID is the registry handle, a random UUID.
	ID string

	// Operation is the protocol operation name that started the task.
	Operation string

	// Started is when the task was registered.
	Started time.Time
}

// TaskRegistry tracks in-flight background work so shutdown can wait for
// it. Every asynchronous dispatch registers a task before its capability
// goroutine starts and removes it exactly once when the completion event
// has been delivered.
//
// All methods are safe for concurrent use.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]Task
	// idle is closed whenever the registry becomes empty and replaced on
	// the next Register. Drain waits on it.
	idle chan struct{}
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry() *TaskRegistry {
	idle := make(chan struct{})
	close(idle)
	return &TaskRegistry{
		tasks: make(map[string]Task),
		idle:  idle,
	}
}

// Register adds a new task for the given operation and returns it.
func (r *TaskRegistry) Register(operation string) Task {
	t := Task{
		ID:        uuid.NewString(),
		Operation: operation,
		Started:   time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tasks) == 0 {
		r.idle = make(chan struct{})
	}
	r.tasks[t.ID] = t
	return t
}

// Remove deletes a task by ID. It reports whether the task was present,
// so a completion path can prove it ran the removal exactly once.
func (r *TaskRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return false
	}
	delete(r.tasks, id)
	if len(r.tasks) == 0 {
		close(r.idle)
	}
	return true
}

// Len returns the number of in-flight tasks.
func (r *TaskRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Tasks returns a snapshot of the in-flight tasks.
func (r *TaskRegistry) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}

// Drain blocks until the registry is empty or the context ends.
//
// Callers stop accepting new work before draining; tasks registered
// while Drain is waiting are still waited for. Returns ErrDrainTimeout
// when the context ends first.
func (r *TaskRegistry) Drain(ctx context.Context) error {
	for {
		r.mu.Lock()
		if len(r.tasks) == 0 {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ErrDrainTimeout
		case <-idle:
		}
	}
}
