package config

import (
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker         string
	MQTTClientID       string // empty means "UAV-<vehicle id>"
	MQTTUsername       string
	MQTTPassword       string
	MQTTKeepAlive      int // seconds
	MQTTConnectTimeout int // milliseconds
	CommandQoS         byte

	// Topics
	TopicPrefix string

	// Simulation
	TelemetryInterval int // milliseconds
	SpeedMPS          float64
	BatteryDrain      float64 // percent per moving tick
	SensorBaseline    float64
	// ScaleStepToInterval makes SpeedMPS a real-time speed: the per-tick
	// step becomes SpeedMPS x TelemetryInterval. Off means SpeedMPS meters
	// per tick.
	ScaleStepToInterval bool

	// NMEA output
	NMEAEnabled    bool
	NMEASerialPort string
	NMEABaudRate   uint

	// Web Server (0 disables it)
	WebServerPort int
}

// Keys lists every recognised configuration key, in file order.
var Keys = []string{
	"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD",
	"MQTT_KEEPALIVE", "MQTT_CONNECT_TIMEOUT", "COMMAND_QOS",
	"TOPIC_PREFIX",
	"TELEMETRY_INTERVAL", "SPEED_MPS", "BATTERY_DRAIN", "SENSOR_BASELINE",
	"SCALE_STEP_TO_INTERVAL",
	"NMEA_ENABLED", "NMEA_SERIAL_PORT", "NMEA_BAUD_RATE",
	"WEB_SERVER_PORT",
}

// Package-level singleton. InitGlobal sets it once, Get reads it.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		MQTTBroker:         "tcp://localhost:1883",
		MQTTKeepAlive:      60,
		MQTTConnectTimeout: 5000,
		CommandQoS:         1,
		TopicPrefix:        "uav",
		TelemetryInterval:  500,
		SpeedMPS:           30,
		BatteryDrain:       0.05,
		SensorBaseline:     50,
		NMEABaudRate:       9600,
	}
}

// Load builds a Config from defaults, then the KEY=VALUE file at configPath
// (skipped when configPath is empty), then the process environment.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		values, err := godotenv.Read(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		for _, key := range slices.Sorted(maps.Keys(values)) {
			if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
				return nil, fmt.Errorf("config file %s: %w", configPath, err)
			}
		}
	}

	for _, key := range Keys {
		if v, ok := os.LookupEnv(key); ok {
			if err := cfg.setValue(key, strings.TrimSpace(v)); err != nil {
				return nil, fmt.Errorf("environment: %w", err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_USERNAME":
		c.MQTTUsername = value
	case "MQTT_PASSWORD":
		c.MQTTPassword = value
	case "MQTT_KEEPALIVE":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_KEEPALIVE %q: %w", value, err)
		}
		c.MQTTKeepAlive = secs
	case "MQTT_CONNECT_TIMEOUT":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_CONNECT_TIMEOUT %q: %w", value, err)
		}
		c.MQTTConnectTimeout = ms
	case "COMMAND_QOS":
		qos, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COMMAND_QOS %q: %w", value, err)
		}
		if qos < 0 || qos > 2 {
			return fmt.Errorf("COMMAND_QOS must be 0-2, got %d", qos)
		}
		c.CommandQoS = byte(qos)

	// Topics
	case "TOPIC_PREFIX":
		c.TopicPrefix = strings.Trim(value, "/")

	// Simulation
	case "TELEMETRY_INTERVAL":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TELEMETRY_INTERVAL %q: %w", value, err)
		}
		c.TelemetryInterval = ms
	case "SPEED_MPS":
		v, err := parseFinite(value)
		if err != nil {
			return fmt.Errorf("invalid SPEED_MPS %q: %w", value, err)
		}
		c.SpeedMPS = v
	case "BATTERY_DRAIN":
		v, err := parseFinite(value)
		if err != nil {
			return fmt.Errorf("invalid BATTERY_DRAIN %q: %w", value, err)
		}
		c.BatteryDrain = v
	case "SENSOR_BASELINE":
		v, err := parseFinite(value)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_BASELINE %q: %w", value, err)
		}
		c.SensorBaseline = v
	case "SCALE_STEP_TO_INTERVAL":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SCALE_STEP_TO_INTERVAL %q: %w", value, err)
		}
		c.ScaleStepToInterval = v

	// NMEA output
	case "NMEA_ENABLED":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid NMEA_ENABLED %q: %w", value, err)
		}
		c.NMEAEnabled = v
	case "NMEA_SERIAL_PORT":
		c.NMEASerialPort = value
	case "NMEA_BAUD_RATE":
		rate, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid NMEA_BAUD_RATE %q: %w", value, err)
		}
		c.NMEABaudRate = uint(rate)

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// parseFinite parses a float and rejects NaN and infinities.
func parseFinite(value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}

// validate checks that all required fields are set and in range.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPrefix == "" {
		return fmt.Errorf("TOPIC_PREFIX is required")
	}
	if c.MQTTConnectTimeout <= 0 {
		return fmt.Errorf("MQTT_CONNECT_TIMEOUT must be positive, got %d", c.MQTTConnectTimeout)
	}
	if c.TelemetryInterval <= 0 {
		return fmt.Errorf("TELEMETRY_INTERVAL must be positive, got %d", c.TelemetryInterval)
	}
	if c.SpeedMPS <= 0 {
		return fmt.Errorf("SPEED_MPS must be positive, got %g", c.SpeedMPS)
	}
	if c.BatteryDrain < 0 {
		return fmt.Errorf("BATTERY_DRAIN must not be negative, got %g", c.BatteryDrain)
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	if c.NMEASerialPort != "" && c.NMEABaudRate == 0 {
		return fmt.Errorf("NMEA_BAUD_RATE is required when NMEA_SERIAL_PORT is set")
	}
	return nil
}

// Interval is the tick period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.TelemetryInterval) * time.Millisecond
}

// ConnectTimeout is the bounded startup wait for the broker.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.MQTTConnectTimeout) * time.Millisecond
}

// KeepAlive is the MQTT keepalive period.
func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.MQTTKeepAlive) * time.Second
}

// ClientID returns the simulator's client id: MQTT_CLIENT_ID as is, or
// "UAV-<vehicleID>".
func (c *Config) ClientID(vehicleID string) string {
	if c.MQTTClientID != "" {
		return c.MQTTClientID
	}
	return "UAV-" + vehicleID
}

// ToolClientID returns the client id for a ground-station tool sharing the
// config with a simulator. MQTT_CLIENT_ID gets a "-<tool>" suffix so the
// broker never sees two sessions with the same id; otherwise fallback is
// used.
func (c *Config) ToolClientID(tool, fallback string) string {
	if c.MQTTClientID != "" {
		return c.MQTTClientID + "-" + tool
	}
	return fallback
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
