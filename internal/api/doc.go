// Package api implements the operator HTTP and WebSocket server for the
// fingerprint service.
//
// This package provides:
//   - Read-only REST endpoints for device status, linked operations, and
//     running tasks
//   - WebSocket hub for live status broadcasts
//   - Middleware stack (request ID, logging, recovery)
//
// # Architecture
//
// The API server sits beside the MQTT protocol boundary. Operation calls
// flow over MQTT; this surface gives dashboards and operators a view of
// the same engine state without an MQTT client. The server registers as
// one more status sink, so every snapshot the periodic publisher emits
// also reaches connected WebSocket clients.
//
// # Graceful Degradation
//
// The server is optional. When disabled in configuration the service
// runs headless over MQTT alone.
package api
