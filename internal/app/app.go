package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ruuvi-gateway/internal/ble"
	"ruuvi-gateway/internal/config"
	"ruuvi-gateway/internal/db"
	"ruuvi-gateway/internal/influx"
	"ruuvi-gateway/internal/mqtt"
	"ruuvi-gateway/internal/repository"
	"ruuvi-gateway/internal/ruuvi"
	"ruuvi-gateway/internal/tags"
)

// Run starts the gateway: a continuous BLE listener feeding decoded
// RuuviTag observations to every enabled sink until ctx is canceled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing gateway",
		"ble_adapter", cfg.BLEAdapter,
		"mqtt_enabled", cfg.MQTTEnabled,
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"sqlite_enabled", cfg.SQLiteEnabled,
		"sqlite_path", cfg.SQLitePath,
		"influx_enabled", cfg.InfluxEnabled,
		"tags_file", cfg.TagsFile,
	)

	aliases, err := tags.Load(cfg.TagsFile)
	if err != nil {
		return err
	}
	logger.Info("tags loaded", "count", len(aliases))

	sinks, closeSinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	if len(sinks) == 0 {
		logger.Warn("no sinks enabled; observations are only logged")
	}

	listener := ble.NewListener(ble.Options{
		Adapter: cfg.BLEAdapter,
		Filter:  ble.Filter{CompanyID: ruuvi.ManufacturerID},
		Logger:  logger,
	})
	handler := ble.NewHandler(aliases, logger, sinks...)
	go func() {
		err := listener.Run(ctx, func(m ble.Match) { handler.HandleMatch(ctx, m) })
		if err != nil {
			logger.Warn("ble listener could not be initialized; gateway continues without BLE",
				"error", err,
			)
		}
	}()
	<-ctx.Done()

	logger.Info("gateway shutting down")
	return nil
}

// buildSinks opens every enabled sink. The returned func releases them in
// reverse order and is never nil.
func buildSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]ble.Sink, func(), error) {
	var (
		sinks   []ble.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.SQLiteEnabled {
		conn, err := db.Open(cfg, logger)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() {
			if err := db.Close(conn); err != nil {
				logger.Error("db close", "error", err)
			}
		})
		sinks = append(sinks, repository.NewRepository(conn))
	}

	if cfg.InfluxEnabled {
		client, err := influx.Connect(ctx, cfg, logger)
		switch {
		case errors.Is(err, influx.ErrConnectionFailed):
			logger.Warn("influx unavailable (continuing without influx)", "error", err)
		case err != nil:
			closeAll()
			return nil, func() {}, err
		default:
			closers = append(closers, client.Close)
			sinks = append(sinks, client)
		}
	}

	if cfg.MQTTEnabled {
		client, err := mqtt.NewClient(cfg, logger)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		go func() {
			// retries with backoff until connected or ctx is done
			if err := client.Connect(ctx); err != nil {
				logger.Error("mqtt connect failed", "error", err)
			}
		}()
		closers = append(closers, client.Disconnect)
		sinks = append(sinks, client)
	}

	return sinks, closeAll, nil
}
