package config

import "time"

// Central place for all application-wide timing constants and other defaults.

const (
	// Polling / transmission intervals
	DefaultPollInterval = 30 * time.Second // Poll the inverter
	MinPollInterval     = 5 * time.Second  // Never poll faster than one request timeout

	// Operation time-outs (to avoid blocking goroutines)
	MQTTTimeout = 5 * time.Second // MQTT publish

	// Factory credentials of the SAJ WiFi module.
	DefaultUsername = "admin"
	DefaultPassword = "admin"

	// EnvPrefix prefixes every environment variable, e.g. SAJ_HASS_HOST.
	EnvPrefix = "SAJ_HASS"
)
