package ble

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"ruuvi-gateway/internal/utils"

	"tinygo.org/x/bluetooth"
)

// Match is a single advertisement that passed the listener filter.
type Match struct {
	Address   string
	RSSI      int16
	LocalName string
	CompanyID uint16
	Data      []byte
	SeenAt    time.Time
}

type Filter struct {
	LocalName            string
	CompanyID            uint16
	ManufacturerDataPref []byte
}

type Options struct {
	Adapter string // "hci0" by default
	Filter  Filter
	Logger  *slog.Logger
}

// Listener wraps BlueZ scanning with context cancellation.
type Listener struct {
	adapter *bluetooth.Adapter
	opts    Options
	logger  *slog.Logger
}

func NewListener(opts Options) *Listener {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Listener{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
		logger:  logger,
	}
}

// Run scans until ctx is canceled, calling onMatch for every advertisement
// that passes the filter.
func (l *Listener) Run(ctx context.Context, onMatch func(Match)) error {
	l.logger.Info("ble: enabling adapter", "adapter", l.opts.Adapter)
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: ble enable (%s): %v", ErrAdapterNotFound, l.opts.Adapter, err)
	}
	l.logger.Info("ble: adapter enabled", "adapter", l.opts.Adapter)

	go func() {
		<-ctx.Done()
		_ = l.adapter.StopScan()
	}()

	l.logger.Info("ble: scanning started",
		"filter_name", l.opts.Filter.LocalName,
		"filter_company", "0x"+utils.Hex4(l.opts.Filter.CompanyID),
		"filter_prefix", fmt.Sprintf("% X", l.opts.Filter.ManufacturerDataPref),
	)

	// adapter.Scan blocks until StopScan() or error.
	err := l.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		m, ok := l.opts.Filter.match(r.Address.String(), r.RSSI, r.LocalName(), r.ManufacturerData())
		if ok && onMatch != nil {
			onMatch(m)
		}
	})

	// If ctx canceled, treat as clean shutdown.
	if ctx.Err() != nil {
		l.logger.Info("ble: scanning stopped (context canceled)")
		return nil
	}

	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}

	l.logger.Info("ble: scanning stopped")
	return nil
}

// match returns the first manufacturer data element accepted by f.
func (f Filter) match(addr string, rssi int16, name string, elems []bluetooth.ManufacturerDataElement) (Match, bool) {
	if f.LocalName != "" && name != f.LocalName {
		return Match{}, false
	}

	for _, md := range elems {
		if f.CompanyID != 0 && md.CompanyID != f.CompanyID {
			continue
		}
		if !bytes.HasPrefix(md.Data, f.ManufacturerDataPref) {
			continue
		}
		return Match{
			Address:   addr,
			RSSI:      rssi,
			LocalName: name,
			CompanyID: md.CompanyID,
			Data:      append([]byte(nil), md.Data...),
			SeenAt:    time.Now(),
		}, true
	}
	return Match{}, false
}
