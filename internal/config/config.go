package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	BLEAdapter   string
	ScanDuration time.Duration
	TagsFile     string

	MQTTEnabled     bool
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	SQLiteEnabled bool
	SQLitePath    string
	SQLiteDSN     string
	DBLogSQL      bool

	InfluxEnabled bool
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string
}

func LoadFromEnv() (Config, error) {
	appEnv := envOr("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	scanDurationStr := envOr("SCAN_DURATION", "10s")
	scanDuration, err := time.ParseDuration(scanDurationStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SCAN_DURATION %q: %w", scanDurationStr, err)
	}
	if scanDuration <= 0 {
		return Config{}, fmt.Errorf("SCAN_DURATION must be positive, got %v", scanDuration)
	}

	mqttEnabled, err := parseBool("MQTT_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	mqttPortStr := envOr("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	sqliteEnabled, err := parseBool("SQLITE_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	dbLogSQL, err := parseBool("DB_LOG_SQL", "false")
	if err != nil {
		return Config{}, err
	}

	influxEnabled, err := parseBool("INFLUX_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	influxToken := strings.TrimSpace(os.Getenv("INFLUX_TOKEN"))
	if influxEnabled && influxToken == "" {
		return Config{}, fmt.Errorf("INFLUX_TOKEN is required when INFLUX_ENABLED=true")
	}

	return Config{
		AppEnv:       appEnv,
		LogLevel:     level,
		BLEAdapter:   envOr("BLE_ADAPTER", "hci0"),
		ScanDuration: scanDuration,
		TagsFile:     strings.TrimSpace(os.Getenv("TAGS_FILE")),

		MQTTEnabled:     mqttEnabled,
		MQTTBroker:      envOr("MQTT_BROKER", "localhost"),
		MQTTPort:        mqttPort,
		MQTTClientID:    envOr("MQTT_CLIENT_ID", "ruuvi-gateway"),
		MQTTTopicPrefix: strings.TrimSuffix(envOr("MQTT_TOPIC_PREFIX", "ruuvi"), "/"),

		SQLiteEnabled: sqliteEnabled,
		SQLitePath:    envOr("SQLITE_PATH", "data/ruuvi.db"),
		SQLiteDSN:     strings.TrimSpace(os.Getenv("SQLITE_DSN")),
		DBLogSQL:      dbLogSQL,

		InfluxEnabled: influxEnabled,
		InfluxURL:     envOr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:   influxToken,
		InfluxOrg:     envOr("INFLUX_ORG", "home"),
		InfluxBucket:  envOr("INFLUX_BUCKET", "ruuvi"),
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseBool(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
