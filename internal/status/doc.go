// Package status holds the device status model for a Fingerprint system.
//
// The status is a small state machine with three enumerated fields (run
// state, result state, error kind) plus a free-text current-command label.
// It is the single source of truth for "what is the device doing now".
//
// # Ownership
//
// Status transitions are driven exclusively by backend capability methods
// while they hold their provider's exclusion lock. The dispatch layer, the
// status publisher and the completion notifier only read snapshots; they
// never write.
//
// # Thread Safety
//
// Register.Snapshot is a lock-free read (atomic pointer load). It may run
// concurrently with an in-flight mutating operation and will observe either
// the previous or the next status value, never a torn one. This is
// intentional: a controller polls progress while a long-running command
// (image acquisition, matching) executes.
package status
