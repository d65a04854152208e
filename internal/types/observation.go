package types

import (
	"time"

	"ruuvi-gateway/internal/ruuvi"
)

// Observation is one decoded RuuviTag advertisement as seen by the gateway.
type Observation struct {
	Address string              `json:"address"`
	Alias   string              `json:"alias,omitempty"`
	RSSI    int16               `json:"rssi"`
	SeenAt  time.Time           `json:"seen_at"`
	Reading ruuvi.SensorReading `json:"reading"`
}
