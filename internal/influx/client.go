// Package influx writes RuuviTag observations to InfluxDB v2 through the
// non-blocking, batching write API.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"ruuvi-gateway/internal/config"
	"ruuvi-gateway/internal/types"
)

const (
	Measurement = "ruuvi"

	defaultConnectTimeout = 10 * time.Second
	batchSize             = 100
	flushIntervalMs       = 10_000
)

// pointWriter is the part of api.WriteAPI the client uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Client is safe for concurrent use. Writes are batched and sent
// asynchronously; write failures are reported to the logger.
type Client struct {
	client influxdb2.Client
	writer pointWriter
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
}

// Connect pings the server and sets up the write API for cfg.InfluxOrg and
// cfg.InfluxBucket.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Client, error) {
	if !cfg.InfluxEnabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := influxdb2.NewClientWithOptions(
		cfg.InfluxURL,
		cfg.InfluxToken,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(flushIntervalMs),
	)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, cfg.InfluxURL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket)
	c := &Client{
		client:    client,
		writer:    writeAPI,
		logger:    logger,
		connected: true,
	}
	go c.handleWriteErrors(writeAPI.Errors())

	logger.Info("influx: connected", "url", cfg.InfluxURL, "org", cfg.InfluxOrg, "bucket", cfg.InfluxBucket)
	return c, nil
}

func newWithWriter(w pointWriter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{writer: w, logger: logger, connected: true}
}

func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.logger.Warn("influx: async write failed", "error", err)
	}
}

func (c *Client) Name() string { return "influx" }

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Write queues obs for the next batch. It only fails when the client is
// closed; delivery errors surface asynchronously.
func (c *Client) Write(_ context.Context, obs types.Observation) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writer.WritePoint(PointFor(obs))
	return nil
}

// Close flushes pending writes and releases the client. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.mu.Unlock()

	c.writer.Flush()
	if c.client != nil {
		c.client.Close()
	}
}

// PointFor maps obs to a point in the ruuvi measurement. Only fields
// present in the reading are written.
func PointFor(obs types.Observation) *write.Point {
	tags := map[string]string{
		"address": obs.Address,
		"format":  strconv.Itoa(obs.Reading.DataFormat),
	}
	if obs.Alias != "" {
		tags["alias"] = obs.Alias
	}

	rd := obs.Reading
	fields := map[string]interface{}{
		"rssi": int64(obs.RSSI),
	}
	addFloat(fields, "temperature_c", rd.Temperature)
	addFloat(fields, "humidity_pct", rd.Humidity)
	addFloat(fields, "pressure_hpa", rd.AirPressure)
	addFloat(fields, "acceleration_x_g", rd.AccelerationX)
	addFloat(fields, "acceleration_y_g", rd.AccelerationY)
	addFloat(fields, "acceleration_z_g", rd.AccelerationZ)
	addFloat(fields, "battery_v", rd.BatteryVoltage)
	addFloat(fields, "tx_power_dbm", rd.TxPower)
	if rd.MovementCounter != nil {
		fields["movement_counter"] = int64(*rd.MovementCounter)
	}
	if rd.MeasurementSequenceNumber != nil {
		fields["measurement_sequence"] = int64(*rd.MeasurementSequenceNumber)
	}

	ts := obs.SeenAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(Measurement, tags, fields, ts)
}

func addFloat(fields map[string]interface{}, key string, v *float64) {
	if v != nil {
		fields[key] = *v
	}
}
