package influxdb

import "errors"

// Errors returned by Connect and HealthCheck. Write failures are not
// returned; they go to the SetOnError callback.
var (
	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps the ping failure seen by Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled means influxdb.enabled is false in the configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
