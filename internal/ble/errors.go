package ble

import "errors"

var (
	ErrAdapterNotFound       = errors.New("bluetooth adapter not found")
	ErrDevicesNotScanned     = errors.New("scan the available devices before trying to access the data")
	ErrUnsupportedDeviceType = errors.New("unsupported device type")
	ErrInvalidAddress        = errors.New("device address must not be empty")
)
