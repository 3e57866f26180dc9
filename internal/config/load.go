package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the configuration from defaults, an optional YAML file and
// SAJ_HASS_* environment variables, in increasing order of precedence. The
// result is not validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, GetDefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("host", d.Host)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("username", d.Username)
	v.SetDefault("password", d.Password)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("force_update_interval", d.ForceUpdateInterval)
	v.SetDefault("mqtt_url", d.MQTTUrl)
	v.SetDefault("discovery_prefix", d.DiscoveryPrefix)
	v.SetDefault("device_id", d.DeviceID)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("verbose", d.Verbose)
}
