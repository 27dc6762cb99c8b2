package status

import "sync/atomic"

// Register owns the current device status for one backend instance.
//
// Writers (backend capability methods, under their provider's exclusion
// lock) replace the whole status atomically. Readers take snapshots without
// locking. There is one long-lived Register per provider.
type Register struct {
	current atomic.Pointer[Status]
}

// NewRegister creates a Register in the initial reset state.
func NewRegister() *Register {
	r := &Register{}
	r.Reset()
	return r
}

// Snapshot returns the current status. Lock-free; safe to call from any
// goroutine, including concurrently with Set.
func (r *Register) Snapshot() Status {
	return *r.current.Load()
}

// Set replaces the current status in one atomic step.
//
// Callers must be backend capability methods holding their provider's
// exclusion lock; that lock is what totally orders mutating transitions.
func (r *Register) Set(run RunState, result ResultState, kind ErrorKind, command string) {
	s := Status{
		RunState:       run,
		ResultState:    result,
		ErrorKind:      kind,
		CurrentCommand: command,
	}
	r.current.Store(&s)
}

// Reset puts the register into the transient reset state, clearing the
// result, error and command fields.
func (r *Register) Reset() {
	r.Set(RunStateSystemReset, ResultStateUndefined, ErrorKindNone, "")
}
