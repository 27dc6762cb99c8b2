package influxdb

import "errors"

// Sentinel errors for the history recorder. Callers check them with
// errors.Is(); a disabled recorder is a configuration choice, not a
// failure, and is reported distinctly from a broken connection.
var (
	// ErrNotConnected indicates the client holds no live connection.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates history recording is switched off in the
	// configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
