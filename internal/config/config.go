package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jkaberg/saj-hass/internal/sensors"
)

// Config holds all configuration options for the SAJ-HASS application
type Config struct {
	// Inverter Configuration
	Host     string `mapstructure:"host"`     // Inverter host or host:port
	Mode     string `mapstructure:"mode"`     // wired (ethernet, XML) or wireless (WiFi module, CSV)
	Username string `mapstructure:"username"` // Basic auth user, wireless only
	Password string `mapstructure:"password"` // Basic auth password, wireless only

	// Polling
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	ForceUpdateInterval time.Duration `mapstructure:"force_update_interval"` // Republish unchanged values at this interval (0 = disabled)

	// MQTT Configuration
	MQTTUrl         string `mapstructure:"mqtt_url"`         // MQTT URL (supports both WebSocket and standard MQTT)
	DiscoveryPrefix string `mapstructure:"discovery_prefix"` // Home Assistant discovery prefix

	// Device Configuration
	DeviceID string `mapstructure:"device_id"` // Unique device identifier

	// Prometheus
	MetricsAddr string `mapstructure:"metrics_addr"` // Listen address for /metrics, empty disables

	// Application Configuration
	Verbose bool `mapstructure:"verbose"` // Enable verbose logging
}

// GetDefaultConfig returns a configuration with sensible defaults
func GetDefaultConfig() *Config {
	return &Config{
		Mode:            sensors.Wired.String(),
		Username:        DefaultUsername,
		Password:        DefaultPassword,
		PollInterval:    DefaultPollInterval,
		DiscoveryPrefix: "homeassistant",
		DeviceID:        "saj_inverter",
		MetricsAddr:     "",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("inverter host is required")
	}
	if strings.Contains(c.Host, "/") {
		return fmt.Errorf("inverter host must be a host or host:port, not a URL: %s", c.Host)
	}
	if c.DeviceID == "" {
		return fmt.Errorf("device ID is required")
	}

	mode, err := c.ConnectivityMode()
	if err != nil {
		return err
	}
	if mode == sensors.Wireless && c.Username == "" {
		return fmt.Errorf("username is required in wireless mode")
	}

	// MQTT validation - support both WebSocket and standard MQTT protocols
	if c.MQTTUrl != "" {
		if !strings.HasPrefix(c.MQTTUrl, "ws://") &&
			!strings.HasPrefix(c.MQTTUrl, "wss://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtt://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtts://") {
			return fmt.Errorf("MQTT URL must use supported protocol (ws://, wss://, mqtt://, or mqtts://)")
		}
	}

	if c.PollInterval < MinPollInterval {
		return fmt.Errorf("poll interval %s is shorter than the minimum %s", c.PollInterval, MinPollInterval)
	}
	if c.ForceUpdateInterval < 0 {
		return fmt.Errorf("force update interval must not be negative")
	}

	return nil
}

// ConnectivityMode parses Mode.
func (c *Config) ConnectivityMode() (sensors.ConnectivityMode, error) {
	return sensors.ParseConnectivityMode(c.Mode)
}

// HasMQTT returns true if MQTT is configured
func (c *Config) HasMQTT() bool {
	return c.MQTTUrl != ""
}

// HasMetrics returns true if the Prometheus endpoint is enabled
func (c *Config) HasMetrics() bool {
	return c.MetricsAddr != ""
}
