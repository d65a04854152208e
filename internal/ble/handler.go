package ble

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ruuvi-gateway/internal/ruuvi"
	"ruuvi-gateway/internal/tags"
	"ruuvi-gateway/internal/types"
	"ruuvi-gateway/internal/utils"
)

const (
	dedupMaxIDsPerDevice = 500

	// An unchanged format 3/4 payload is forwarded again after this long.
	repeatInterval = time.Minute

	// Devices silent for deviceIdleTTL are forgotten, checked at most once
	// per sweepInterval.
	deviceIdleTTL = 15 * time.Minute
	sweepInterval = time.Minute
)

// Sink receives decoded observations.
type Sink interface {
	Name() string
	Write(ctx context.Context, obs types.Observation) error
}

// Handler decodes RuuviTag advertisements, drops repeats and fans the
// result out to every sink.
type Handler struct {
	sinks   []Sink
	aliases tags.Aliases
	logger  *slog.Logger

	dedupMu   sync.Mutex
	devices   map[string]*deviceState
	lastSweep time.Time
}

type deviceState struct {
	seqs        map[int]struct{}
	payload     string
	forwardedAt time.Time
	lastSeen    time.Time
}

// NewHandler creates a handler writing to sinks in the given order.
func NewHandler(aliases tags.Aliases, logger *slog.Logger, sinks ...Sink) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sinks:   sinks,
		aliases: aliases,
		logger:  logger,
		devices: make(map[string]*deviceState),
	}
}

// HandleMatch processes one advertisement. Decode and sink failures are
// logged and never stop the caller from handling further devices.
func (h *Handler) HandleMatch(ctx context.Context, m Match) {
	reading, err := ruuvi.DecodeManufacturerData(m.CompanyID, m.Data)
	if errors.Is(err, ruuvi.ErrUnknownManufacturer) {
		return
	}
	if err != nil {
		h.logger.Debug("ble: ignore undecodable payload",
			"addr", m.Address,
			"data", utils.BytesToHex(m.Data),
			"error", err,
		)
		return
	}

	if h.duplicate(m, reading) {
		return
	}

	obs := types.Observation{
		Address: m.Address,
		Alias:   h.aliases.Lookup(m.Address),
		RSSI:    m.RSSI,
		SeenAt:  m.SeenAt,
		Reading: reading,
	}
	for _, s := range h.sinks {
		if err := s.Write(ctx, obs); err != nil {
			h.logger.Warn("ble: sink write failed", "sink", s.Name(), "addr", m.Address, "error", err)
		}
	}

	h.logger.Info("ble: ruuvi reading",
		"addr", m.Address,
		"alias", obs.Alias,
		"format", reading.DataFormat,
		"rssi", m.RSSI,
		"data", utils.BytesToHex(m.Data),
	)
}

// duplicate reports whether this reading was already handled. Format 5
// carries a sequence number; older formats are compared by raw payload.
func (h *Handler) duplicate(m Match, r ruuvi.SensorReading) bool {
	now := m.SeenAt
	if now.IsZero() {
		now = time.Now()
	}

	h.dedupMu.Lock()
	defer h.dedupMu.Unlock()

	h.evictIdle(now)
	st := h.devices[m.Address]
	if st == nil {
		st = &deviceState{}
		h.devices[m.Address] = st
	}
	st.lastSeen = now

	if r.MeasurementSequenceNumber == nil {
		payload := string(m.Data)
		if st.payload == payload && now.Sub(st.forwardedAt) < repeatInterval {
			return true
		}
		st.payload = payload
		st.forwardedAt = now
		return false
	}

	seq := *r.MeasurementSequenceNumber
	if st.seqs == nil {
		st.seqs = make(map[int]struct{})
	}
	if _, ok := st.seqs[seq]; ok {
		return true
	}
	st.seqs[seq] = struct{}{}
	if len(st.seqs) > dedupMaxIDsPerDevice {
		st.seqs = map[int]struct{}{seq: {}}
	}
	return false
}

// evictIdle drops devices not seen for deviceIdleTTL. Callers hold dedupMu.
func (h *Handler) evictIdle(now time.Time) {
	if now.Sub(h.lastSweep) < sweepInterval {
		return
	}
	h.lastSweep = now
	for addr, st := range h.devices {
		if now.Sub(st.lastSeen) > deviceIdleTTL {
			delete(h.devices, addr)
		}
	}
}
