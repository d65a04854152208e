// Package ruuvi decodes RuuviTag sensor broadcasts (data formats 3, 4 and 5)
// carried in BLE manufacturer-specific advertisement data.
//
// Protocol reference: https://github.com/ruuvi/ruuvi-sensor-protocols
package ruuvi

// ManufacturerID is the Bluetooth SIG company identifier of Ruuvi Innovations (0x0499).
const ManufacturerID uint16 = 1177

// Supported data format tags (first payload byte).
const (
	FormatRAWv1 = 3
	FormatURL   = 4
	FormatRAWv2 = 5
)

// SensorReading is a decoded RuuviTag broadcast.
// Fields that the data format does not carry are nil.
type SensorReading struct {
	DataFormat                int      `json:"data_format"`
	Temperature               *float64 `json:"temperature_c,omitempty"`
	Humidity                  *float64 `json:"humidity_pct,omitempty"`
	AirPressure               *float64 `json:"pressure_hpa,omitempty"`
	AccelerationX             *float64 `json:"acceleration_x_g,omitempty"`
	AccelerationY             *float64 `json:"acceleration_y_g,omitempty"`
	AccelerationZ             *float64 `json:"acceleration_z_g,omitempty"`
	BatteryVoltage            *float64 `json:"battery_v,omitempty"`
	TxPower                   *float64 `json:"tx_power_dbm,omitempty"`
	MovementCounter           *int     `json:"movement_counter,omitempty"`
	MeasurementSequenceNumber *int     `json:"measurement_sequence,omitempty"`
	MacAddress                *string  `json:"mac,omitempty"`
}
