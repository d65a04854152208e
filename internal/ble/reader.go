package ble

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"ruuvi-gateway/internal/ruuvi"
)

// DefaultScanDuration is used when Scan is called with a non-positive duration.
const DefaultScanDuration = 10 * time.Second

// typedDecoders maps the result types TypedReading can produce to the
// decoder of their manufacturer data.
var typedDecoders = map[reflect.Type]func(data []byte) (any, error){
	reflect.TypeFor[ruuvi.SensorReading](): func(data []byte) (any, error) {
		return ruuvi.Decode(data)
	},
}

// Reader scans for BLE devices and decodes their manufacturer data.
// It is safe for concurrent use; each Scan replaces the device snapshot.
type Reader struct {
	service Service
	logger  *slog.Logger

	mu      sync.RWMutex
	devices []DeviceInfo
	scanned bool
}

func NewReader(service Service, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{service: service, logger: logger}
}

// Scan runs discovery on the named adapter (first available when empty) for
// the given duration and returns the number of devices found.
func (r *Reader) Scan(ctx context.Context, adapterName string, duration time.Duration) (int, error) {
	if duration <= 0 {
		duration = DefaultScanDuration
	}

	adapter, err := r.service.Adapter(ctx, adapterName)
	if err != nil {
		return 0, err
	}
	if adapter == nil {
		return 0, fmt.Errorf("%w: %q", ErrAdapterNotFound, adapterName)
	}

	r.logger.Info("ble: scanning started", "adapter", adapterName, "duration", duration)
	if err := adapter.StartDiscovery(ctx); err != nil {
		return 0, fmt.Errorf("start discovery: %w", err)
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		_ = adapter.StopDiscovery()
		return 0, ctx.Err()
	case <-timer.C:
	}

	if err := adapter.StopDiscovery(); err != nil {
		return 0, fmt.Errorf("stop discovery: %w", err)
	}

	devices := adapter.Devices()
	r.mu.Lock()
	r.devices = devices
	r.scanned = true
	r.mu.Unlock()

	r.logger.Info("ble: scanning stopped", "devices", len(devices))
	return len(devices), nil
}

// ListDevices returns the devices found by the latest scan.
func (r *Reader) ListDevices(_ context.Context) ([]DeviceInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.scanned {
		return nil, ErrDevicesNotScanned
	}
	out := make([]DeviceInfo, len(r.devices))
	copy(out, r.devices)
	return out, nil
}

// TypedReading decodes the manufacturer data of the scanned device at address
// as T. It returns (nil, nil) when no such device was seen or it advertised
// no manufacturer data.
func TypedReading[T any](r *Reader, address string) (*T, error) {
	data, err := r.manufacturerData(address)
	if err != nil || data == nil {
		return nil, err
	}

	decode, ok := typedDecoders[reflect.TypeFor[T]()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDeviceType, reflect.TypeFor[T]())
	}
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	out := v.(T)
	return &out, nil
}

func (r *Reader) manufacturerData(address string) ([]byte, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.scanned {
		return nil, ErrDevicesNotScanned
	}
	for _, d := range r.devices {
		if strings.EqualFold(d.Address, address) {
			return d.ManufacturerData, nil
		}
	}
	return nil, nil
}
