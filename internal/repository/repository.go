package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ruuvi-gateway/internal/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/select-columns.sql
var selectColumnsSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/get-addresses.sql
var getAddressesSQL string

// seenAtLayout is fixed width so that seen_at sorts and compares as text
// in time order.
const seenAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Latest when no reading exists for the address.
var ErrNotFound = errors.New("reading not found")

type ReadingRepository interface {
	Name() string
	Write(ctx context.Context, obs types.Observation) error
	Latest(ctx context.Context, address string) (types.Observation, error)
	List(ctx context.Context, address string, from, to time.Time, limit int) ([]types.Observation, error)
	Addresses(ctx context.Context) ([]string, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ReadingRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Name() string { return "sqlite" }

// Write stores obs; absent reading fields become NULL.
func (r *repositoryImpl) Write(ctx context.Context, obs types.Observation) error {
	rd := obs.Reading
	var alias any
	if obs.Alias != "" {
		alias = obs.Alias
	}
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		obs.Address, alias, formatTime(obs.SeenAt), obs.RSSI, rd.DataFormat,
		nullable(rd.Temperature), nullable(rd.Humidity), nullable(rd.AirPressure),
		nullable(rd.AccelerationX), nullable(rd.AccelerationY), nullable(rd.AccelerationZ),
		nullable(rd.BatteryVoltage), nullable(rd.TxPower),
		nullable(rd.MovementCounter), nullable(rd.MeasurementSequenceNumber), nullable(rd.MacAddress),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *repositoryImpl) Latest(ctx context.Context, address string) (types.Observation, error) {
	rows, err := r.db.QueryContext(ctx, selectColumnsSQL+getLatestReadingSQL, address)
	if err != nil {
		return types.Observation{}, err
	}
	defer closeRows(rows, "latest reading")
	out, err := scanObservations(rows)
	if err != nil {
		return types.Observation{}, err
	}
	if len(out) == 0 {
		return types.Observation{}, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return out[0], nil
}

// List returns readings of address seen in [from, to), oldest first.
func (r *repositoryImpl) List(ctx context.Context, address string, from, to time.Time, limit int) ([]types.Observation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, selectColumnsSQL+getReadingsSQL, address, formatTime(from), formatTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "readings")
	return scanObservations(rows)
}

func (r *repositoryImpl) Addresses(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, getAddressesSQL)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "addresses")
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanObservations(rows *sql.Rows) ([]types.Observation, error) {
	var out []types.Observation
	for rows.Next() {
		var (
			obs                types.Observation
			alias, mac         sql.NullString
			ts                 string
			temp, hum, press   sql.NullFloat64
			accX, accY, accZ   sql.NullFloat64
			battery, txPower   sql.NullFloat64
			movement, sequence sql.NullInt64
		)
		if err := rows.Scan(
			&obs.Address, &alias, &ts, &obs.RSSI, &obs.Reading.DataFormat,
			&temp, &hum, &press, &accX, &accY, &accZ,
			&battery, &txPower, &movement, &sequence, &mac,
		); err != nil {
			return nil, err
		}
		t, err := time.Parse(seenAtLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse seen_at %q: %w", ts, err)
		}
		obs.SeenAt = t
		obs.Alias = alias.String

		rd := &obs.Reading
		rd.Temperature = floatPtr(temp)
		rd.Humidity = floatPtr(hum)
		rd.AirPressure = floatPtr(press)
		rd.AccelerationX = floatPtr(accX)
		rd.AccelerationY = floatPtr(accY)
		rd.AccelerationZ = floatPtr(accZ)
		rd.BatteryVoltage = floatPtr(battery)
		rd.TxPower = floatPtr(txPower)
		rd.MovementCounter = intPtr(movement)
		rd.MeasurementSequenceNumber = intPtr(sequence)
		if mac.Valid {
			rd.MacAddress = &mac.String
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close "+what+" rows", "error", err)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(seenAtLayout)
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
