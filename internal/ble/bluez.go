package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// BlueZService provides adapters backed by tinygo's bluetooth stack (BlueZ on Linux).
type BlueZService struct {
	logger *slog.Logger
}

func NewBlueZService(logger *slog.Logger) *BlueZService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlueZService{logger: logger}
}

// Adapter enables the named adapter, or the default one when name is empty.
// An adapter that cannot be enabled is reported as ErrAdapterNotFound.
func (s *BlueZService) Adapter(_ context.Context, name string) (Adapter, error) {
	a := bluetooth.DefaultAdapter
	if name != "" {
		a = bluetooth.NewAdapter(name)
	}
	if err := a.Enable(); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrAdapterNotFound, name, err)
	}
	if name == "" {
		name = "default"
	}
	s.logger.Info("ble: adapter enabled", "adapter", name)
	return &bluezAdapter{adapter: a, logger: s.logger}, nil
}

type bluezAdapter struct {
	adapter *bluetooth.Adapter
	logger  *slog.Logger

	mu      sync.Mutex
	devices map[string]DeviceInfo
	order   []string
	done    chan error
	stop    chan struct{}
}

// StartDiscovery starts scanning in the background; the latest
// advertisement of each address is kept.
func (a *bluezAdapter) StartDiscovery(ctx context.Context) error {
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return fmt.Errorf("ble: discovery already running")
	}
	a.devices = make(map[string]DeviceInfo)
	a.order = nil
	a.done = make(chan error, 1)
	a.stop = make(chan struct{})
	done, stop := a.done, a.stop
	a.mu.Unlock()

	go func() {
		done <- a.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			a.record(deviceFromScan(r))
		})
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = a.adapter.StopScan()
		case <-stop:
		}
	}()
	return nil
}

func (a *bluezAdapter) StopDiscovery() error {
	a.mu.Lock()
	done, stop := a.done, a.stop
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	close(stop)

	if err := a.adapter.StopScan(); err != nil {
		a.logger.Warn("ble: stop scan", "error", err)
	}
	err := <-done

	a.mu.Lock()
	a.done, a.stop = nil, nil
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}
	return nil
}

func (a *bluezAdapter) Devices() []DeviceInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]DeviceInfo, 0, len(a.order))
	for _, addr := range a.order {
		out = append(out, a.devices[addr])
	}
	return out
}

func (a *bluezAdapter) record(d DeviceInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, seen := a.devices[d.Address]
	if !seen {
		a.order = append(a.order, d.Address)
	}
	// Keep what earlier advertisements told us (scan responses carry the name,
	// advertisements the manufacturer data).
	if d.Name == nil {
		d.Name = prev.Name
	}
	if d.ManufacturerData == nil {
		d.ManufacturerID = prev.ManufacturerID
		d.ManufacturerData = prev.ManufacturerData
	}
	a.devices[d.Address] = d
}

func deviceFromScan(r bluetooth.ScanResult) DeviceInfo {
	d := DeviceInfo{
		Address: r.Address.String(),
		RSSI:    r.RSSI,
	}
	if name := r.LocalName(); name != "" {
		d.Name = &name
	}
	if md := r.ManufacturerData(); len(md) > 0 {
		id := md[0].CompanyID
		d.ManufacturerID = &id
		d.ManufacturerData = append([]byte(nil), md[0].Data...)
	}
	return d
}
