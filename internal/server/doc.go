// Package server renders the dispatch engine over MQTT.
//
// It is the protocol boundary of the fingerprint service: automation
// clients call operations by publishing JSON requests, and the server
// answers with immediate replies, completion events, and retained state
// variables.
//
// # Topics
//
//	fingerprint/service/{Operation}/request              operation calls
//	fingerprint/service/{Operation}/response/{reqID}     immediate replies
//	fingerprint/event/{Operation}                        completion events
//	fingerprint/state/{VariableName}                     retained variables
//
// # Message Flow
//
//  1. Client publishes a Request to the operation's request topic.
//  2. The server dispatches the call. Synchronous operations answer
//     with the merged result envelope; asynchronous operations answer
//     with the acknowledgment and a task ID.
//  3. When an asynchronous task finishes, exactly one EventMessage is
//     published on the operation's event topic.
//
// The server also implements the dispatch engine's Notifier and
// StatusSink contracts, so completion events and status snapshots flow
// outward without extra glue.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Incoming requests are
// handled on the MQTT client's callback goroutines.
package server
