package influx

import "errors"

var (
	// ErrDisabled is returned by Connect when INFLUX_ENABLED is false.
	ErrDisabled = errors.New("influxdb is disabled")

	ErrConnectionFailed = errors.New("influxdb connection failed")

	// ErrNotConnected is returned by Write after Close.
	ErrNotConnected = errors.New("influxdb not connected")
)
