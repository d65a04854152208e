package ble

import "context"

// DeviceInfo describes a device found during the latest scan.
// ManufacturerID and ManufacturerData are nil when the device advertised none.
type DeviceInfo struct {
	Name             *string `json:"name,omitempty"`
	Address          string  `json:"address"`
	RSSI             int16   `json:"rssi"`
	ManufacturerID   *uint16 `json:"manufacturer_id,omitempty"`
	ManufacturerData []byte  `json:"manufacturer_data,omitempty"`
}

// Service resolves a Bluetooth adapter by name. An empty name selects the
// first available adapter.
type Service interface {
	Adapter(ctx context.Context, name string) (Adapter, error)
}

// Adapter runs discovery and reports what it saw.
type Adapter interface {
	StartDiscovery(ctx context.Context) error
	StopDiscovery() error
	Devices() []DeviceInfo
}
