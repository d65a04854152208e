package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ruuvi-gateway/internal/ble"
	"ruuvi-gateway/internal/ruuvi"
	"ruuvi-gateway/internal/utils"
)

// Scan runs one discovery window on adapterName and prints every device it
// found to w. RuuviTag devices also get their decoded reading as indented
// JSON; a device that fails to decode is reported and skipped.
func Scan(ctx context.Context, w io.Writer, service ble.Service, adapterName string, duration time.Duration, logger *slog.Logger) error {
	reader := ble.NewReader(service, logger)

	fmt.Fprintf(w, "Scanning for %s...\n\n", duration)
	if _, err := reader.Scan(ctx, adapterName, duration); err != nil {
		return err
	}
	devices, err := reader.ListDevices(ctx)
	if err != nil {
		return err
	}

	for _, d := range devices {
		fmt.Fprintln(w, deviceLine(d))
		if d.ManufacturerID == nil || *d.ManufacturerID != ruuvi.ManufacturerID {
			continue
		}

		reading, err := ble.TypedReading[ruuvi.SensorReading](reader, d.Address)
		if err != nil {
			fmt.Fprintf(w, "RuuviTag %s: %v\n", d.Address, err)
			continue
		}
		if reading == nil {
			continue
		}
		b, err := json.MarshalIndent(reading, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "RuuviTag sensor data: %s\n", b)
	}
	return nil
}

func deviceLine(d ble.DeviceInfo) string {
	name := "<unknown>"
	if d.Name != nil {
		name = *d.Name
	}
	line := fmt.Sprintf("Found device with address %s: Name: %s", d.Address, name)
	if d.ManufacturerID != nil {
		line += fmt.Sprintf(", Manufacturer ID: %d, Manufacturer data: %s",
			*d.ManufacturerID, utils.BytesToHexSep(d.ManufacturerData, "-"))
	}
	return line
}
