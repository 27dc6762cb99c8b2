package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the fingerprint service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Interface InterfaceConfig `yaml:"interface"`
	Backend   BackendConfig   `yaml:"backend"`
	Variables VariablesConfig `yaml:"variables"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Shutdown  ShutdownConfig  `yaml:"shutdown"`
}

// DeviceConfig identifies the exposed device.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// InterfaceConfig controls how the declared operation set is linked.
type InterfaceConfig struct {
	// Definition is the path to the YAML interface definition file.
	Definition string `yaml:"definition"`

	// Prefer selects the response mode for operations declaring both
	// result shapes: "async" (default) or "sync".
	Prefer string `yaml:"prefer"`

	// StateIntervalMS is the periodic status republish interval.
	StateIntervalMS int `yaml:"state_interval_ms"`
}

// BackendConfig selects and tunes the device backend.
type BackendConfig struct {
	// Level is the integration level: "echo" or "mockup".
	// "tcpip" is reserved for the hardware integration and rejected.
	Level string `yaml:"level"`

	// Store selects the mockup part store: "memory" or "sqlite".
	Store string `yaml:"store"`

	// Durations overrides per-method execution estimates in milliseconds,
	// keyed by backend method name (e.g. add_part: 2000).
	Durations map[string]float64 `yaml:"durations"`
}

// VariablesConfig declares the initial protocol variables published at
// startup, grouped the way the device model groups them. Values are
// strings typed by inference when published.
type VariablesConfig struct {
	Capabilities map[string]string `yaml:"capabilities"`
	Properties   map[string]string `yaml:"properties"`
	State        map[string]string `yaml:"state"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket status stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// history recorder.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ShutdownConfig controls graceful shutdown behavior.
type ShutdownConfig struct {
	// DrainTimeout is how long, in seconds, shutdown waits for in-flight
	// background tasks before abandoning them.
	DrainTimeout int `yaml:"drain_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FINGERPRINT_SECTION_KEY
// For example: FINGERPRINT_DATABASE_PATH, FINGERPRINT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Read and parse YAML file
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the -config flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:   "fingerprint-001",
			Name: "Fingerprint",
		},
		Interface: InterfaceConfig{
			Definition:      "./config/interface.yaml",
			Prefer:          "async",
			StateIntervalMS: 250,
		},
		Backend: BackendConfig{
			Level: "echo",
			Store: "memory",
		},
		Database: DatabaseConfig{
			Path:        "./data/fingerprint.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fingerprintd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Shutdown: ShutdownConfig{
			DrainTimeout: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FINGERPRINT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Backend
	if v := os.Getenv("FINGERPRINT_BACKEND_LEVEL"); v != "" {
		cfg.Backend.Level = v
	}

	// Database
	if v := os.Getenv("FINGERPRINT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("FINGERPRINT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FINGERPRINT_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("FINGERPRINT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FINGERPRINT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("FINGERPRINT_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("FINGERPRINT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Interface validation
	if c.Interface.Definition == "" {
		errs = append(errs, "interface.definition is required")
	}
	if c.Interface.Prefer != "async" && c.Interface.Prefer != "sync" {
		errs = append(errs, "interface.prefer must be \"async\" or \"sync\"")
	}
	if c.Interface.StateIntervalMS < 1 {
		errs = append(errs, "interface.state_interval_ms must be positive")
	}

	// Backend validation. "tcpip" names the hardware integration level,
	// which this build does not carry.
	switch c.Backend.Level {
	case "echo", "mockup":
	case "tcpip":
		errs = append(errs, "backend.level \"tcpip\" is reserved for the hardware integration and not available")
	default:
		errs = append(errs, fmt.Sprintf("backend.level %q is not supported (echo, mockup)", c.Backend.Level))
	}
	if c.Backend.Store != "memory" && c.Backend.Store != "sqlite" {
		errs = append(errs, "backend.store must be \"memory\" or \"sqlite\"")
	}
	for method, ms := range c.Backend.Durations {
		if ms < 0 {
			errs = append(errs, fmt.Sprintf("backend.durations.%s must not be negative", method))
		}
	}

	// Database validation
	if c.Backend.Store == "sqlite" && c.Database.Path == "" {
		errs = append(errs, "database.path is required for the sqlite store")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Shutdown validation
	if c.Shutdown.DrainTimeout < 0 {
		errs = append(errs, "shutdown.drain_timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StateInterval returns the status republish interval as a Duration.
func (c *Config) StateInterval() time.Duration {
	return time.Duration(c.Interface.StateIntervalMS) * time.Millisecond
}

// DrainTimeout returns the shutdown drain timeout as a Duration.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Shutdown.DrainTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
