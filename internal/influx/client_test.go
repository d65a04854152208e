package influx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruuvi-gateway/internal/config"
	"ruuvi-gateway/internal/ruuvi"
	"ruuvi-gateway/internal/types"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func ptr[T any](v T) *T { return &v }

func tagMap(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fieldMap(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.Config{InfluxEnabled: false}, nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPointFor_Format5(t *testing.T) {
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	obs := types.Observation{
		Address: "CB:B8:33:4C:88:4F",
		Alias:   "sauna",
		RSSI:    -71,
		SeenAt:  seen,
		Reading: ruuvi.SensorReading{
			DataFormat:                ruuvi.FormatRAWv2,
			Temperature:               ptr(24.3),
			Humidity:                  ptr(53.49),
			AirPressure:               ptr(1000.44),
			AccelerationX:             ptr(0.004),
			AccelerationY:             ptr(-0.004),
			AccelerationZ:             ptr(1.036),
			BatteryVoltage:            ptr(2.977),
			TxPower:                   ptr(4.0),
			MovementCounter:           ptr(66),
			MeasurementSequenceNumber: ptr(205),
			MacAddress:                ptr("CB-B8-33-4C-88-4F"),
		},
	}

	p := PointFor(obs)
	assert.Equal(t, Measurement, p.Name())
	assert.True(t, seen.Equal(p.Time()))
	assert.Equal(t, map[string]string{
		"address": "CB:B8:33:4C:88:4F",
		"alias":   "sauna",
		"format":  "5",
	}, tagMap(p))

	fields := fieldMap(p)
	assert.Len(t, fields, 11)
	assert.Equal(t, 24.3, fields["temperature_c"])
	assert.Equal(t, 2.977, fields["battery_v"])
	assert.Equal(t, int64(66), fields["movement_counter"])
	assert.Equal(t, int64(205), fields["measurement_sequence"])
	assert.Equal(t, int64(-71), fields["rssi"])
}

func TestPointFor_OnlyPresentFields(t *testing.T) {
	obs := types.Observation{
		Address: "C7:5C:8E:1A:1E:CE",
		SeenAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Reading: ruuvi.SensorReading{
			DataFormat:  ruuvi.FormatURL,
			Temperature: ptr(26.0),
			Humidity:    ptr(20.5),
			AirPressure: ptr(1004.2),
		},
	}

	p := PointFor(obs)
	tags := tagMap(p)
	assert.NotContains(t, tags, "alias")
	assert.Equal(t, "4", tags["format"])

	fields := fieldMap(p)
	assert.Len(t, fields, 4)
	assert.Contains(t, fields, "temperature_c")
	assert.Contains(t, fields, "humidity_pct")
	assert.Contains(t, fields, "pressure_hpa")
	assert.NotContains(t, fields, "battery_v")
	assert.NotContains(t, fields, "movement_counter")
}

func TestClient_WriteAndClose(t *testing.T) {
	w := &fakeWriter{}
	c := newWithWriter(w, nil)
	assert.Equal(t, "influx", c.Name())
	ctx := context.Background()

	obs := types.Observation{
		Address: "C7:5C:8E:1A:1E:CE",
		Reading: ruuvi.SensorReading{DataFormat: ruuvi.FormatURL, Temperature: ptr(26.0)},
	}
	require.NoError(t, c.Write(ctx, obs))
	require.NoError(t, c.Write(ctx, obs))
	assert.Len(t, w.points, 2)
	assert.Equal(t, 0, w.flushes)

	// Close flushes pending points once
	c.Close()
	c.Close()
	assert.False(t, c.IsConnected())
	assert.Equal(t, 1, w.flushes)

	assert.ErrorIs(t, c.Write(ctx, obs), ErrNotConnected)
	assert.Len(t, w.points, 2)
}
