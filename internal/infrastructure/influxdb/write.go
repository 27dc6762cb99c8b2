package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ipm-pk/fingerprint/internal/status"
)

// PublishStatus records one device status snapshot.
//
// The write is non-blocking; points are batched and sent asynchronously.
// The method name matches the status sink contract of the dispatch
// engine, so a connected client can be registered as a sink directly.
func (c *Client) PublishStatus(s status.Status) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_status",
		map[string]string{
			"run_state":  s.RunState.String(),
			"error_kind": s.ErrorKind.String(),
		},
		map[string]interface{}{
			"run_state":       int64(s.RunState),
			"result_state":    int64(s.ResultState),
			"error_kind":      int64(s.ErrorKind),
			"current_command": s.CurrentCommand,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCompletion records the terminal outcome of one asynchronous
// operation.
//
// Parameters:
//   - operation: Protocol operation name (e.g., "AddPart")
//   - taskID: The background task identity
//   - outcome: "success" or "error"
//   - elapsed: Wall time from registration to completion
func (c *Client) WriteCompletion(operation, taskID, outcome string, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"operation_completion",
		map[string]string{
			"operation": operation,
			"outcome":   outcome,
		},
		map[string]interface{}{
			"task_id":    taskID,
			"elapsed_ms": elapsed.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

