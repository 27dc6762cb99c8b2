// Package backend defines the capability contract implemented by
// Fingerprint sensor systems, plus the bundled providers.
//
// A provider exposes one Capability per operation, keyed by the backend
// method name (snake_case): reset_system, get_status,
// set_image_matching_type, add_part, trace_part. The capability table is
// built explicitly in the provider's constructor and validated once at
// interface-linking time; there is no reflection and no lookup at call
// time beyond the linked dispatch table.
//
// # Providers
//
//   - Echo: placeholder system. Every capability logs its invocation,
//     walks the expected status transitions with simulated delays, and
//     returns canned results. Used for the first controller integration
//     step, before any real sensing exists.
//   - Mockup: simulated sensing. Maintains part databases (in memory or
//     SQLite-backed), performs duplicate checks on AddPart and candidate
//     matching on TracePart. Used for the second integration step.
//
// # Serialization
//
// Each mutating capability serializes against its provider's exclusion
// lock, so at most one mutating operation is in flight per provider. All
// status transitions happen inside capability bodies while that lock is
// held. Non-mutating capabilities (get_status) do not take the lock; they
// read lock-free status snapshots so a controller can poll progress during
// a long-running command.
package backend
