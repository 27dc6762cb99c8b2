// Package service links protocol-declared operations to backend
// capabilities and dispatches calls through them.
//
// The package is organised around a small pipeline:
//
//   - Definition: the operation set a deployment declares, loaded from a
//     YAML file (operation names, argument lists, result shapes).
//   - Link: resolves each declared operation against a backend provider's
//     capability table and classifies it as synchronous or asynchronous
//     from its declared result shape. Operations that cannot be bound or
//     classified are excluded individually; linking always continues.
//   - Dispatcher: routes incoming calls. Synchronous operations run
//     inline and reply with the merged result envelope. Asynchronous
//     operations reply immediately with acknowledgment info while the
//     capability runs in the background, tracked by the TaskRegistry,
//     and finish with exactly one completion event.
//   - Publisher: republishes device status snapshots on a fixed interval
//     so observers stay current even while a long call is in flight.
//
// Consumers plug in through two narrow interfaces: Notifier receives
// completion events, StatusSink receives status snapshots. The MQTT
// server, the HTTP API hub and the history recorder all implement one or
// both.
package service
