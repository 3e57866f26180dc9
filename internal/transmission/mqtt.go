package transmission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/sirupsen/logrus"
)

// MQTTTransmitter transmits sensor data via MQTT
type MQTTTransmitter struct {
	client           Publisher
	discoveryPrefix  string
	model            string
	logger           *logrus.Logger
	publishedSensors map[string]bool // Tracks published discovery configs
}

// HADiscoveryConfig represents Home Assistant MQTT discovery configuration
type HADiscoveryConfig struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	Device            HADevice `json:"device"`
	AvailabilityTopic string   `json:"availability_topic"`
	Icon              string   `json:"icon,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Options           []string `json:"options,omitempty"`
}

// HADevice represents the device information for Home Assistant
type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// NewMQTTTransmitter creates a new MQTT transmitter. model ends up in the
// Home Assistant device card.
func NewMQTTTransmitter(client Publisher, discoveryPrefix, model string, logger *logrus.Logger) *MQTTTransmitter {
	return &MQTTTransmitter{
		client:           client,
		discoveryPrefix:  discoveryPrefix,
		model:            model,
		logger:           logger,
		publishedSensors: make(map[string]bool),
	}
}

// sensorConfig derives the discovery entry for one sensor from its unit and
// classification.
func (t *MQTTTransmitter) sensorConfig(s sensors.SensorState, device HADevice) HADiscoveryConfig {
	cfg := HADiscoveryConfig{
		Name:              displayName(s.Name),
		UniqueID:          fmt.Sprintf("%s_%s", t.client.DeviceID(), s.Name),
		StateTopic:        t.client.StateTopic(),
		ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", s.Name),
		UnitOfMeasurement: s.Unit,
		Device:            device,
		AvailabilityTopic: t.client.AvailabilityTopic(),
	}

	if s.Key == sensors.StateKey {
		cfg.DeviceClass = "enum"
		cfg.Icon = "mdi:solar-power"
		cfg.Options = sensors.StateNames()
		return cfg
	}

	switch s.Unit {
	case "W":
		cfg.DeviceClass = "power"
	case "kWh":
		cfg.DeviceClass = "energy"
	case "°C":
		cfg.DeviceClass = "temperature"
	case "h":
		cfg.DeviceClass = "duration"
	case "kg":
		cfg.DeviceClass = "weight"
	}

	switch {
	case s.Cumulative, s.PerDay:
		// Per-day counters reset at midnight, which total_increasing tolerates.
		cfg.StateClass = "total_increasing"
	default:
		cfg.StateClass = "measurement"
	}
	return cfg
}

func (t *MQTTTransmitter) device() HADevice {
	return HADevice{
		Identifiers:  []string{"saj_" + t.client.DeviceID()},
		Name:         "SAJ Inverter",
		Model:        t.model,
		Manufacturer: "SAJ",
	}
}

// publishDiscoveryConfigs publishes discovery for every sensor not yet
// announced.
func (t *MQTTTransmitter) publishDiscoveryConfigs(snap *sensors.Snapshot) {
	device := t.device()
	for _, s := range snap.Sensors {
		if t.publishedSensors[s.Name] {
			continue
		}
		cfg := t.sensorConfig(s, device)
		topic := t.client.DiscoveryTopic(t.discoveryPrefix, "sensor", s.Name)
		if err := t.publishConfigRaw(topic, cfg); err != nil {
			t.logger.WithError(err).WithField("sensor", s.Name).Error("Failed to publish discovery config")
			continue
		}
		t.logger.WithFields(logrus.Fields{
			"sensor": s.Name,
			"topic":  topic,
		}).Info("Published sensor discovery config")
		t.publishedSensors[s.Name] = true
	}
}

// publishConfigRaw publishes a raw configuration object
func (t *MQTTTransmitter) publishConfigRaw(topic string, config interface{}) error {
	payload, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal discovery config: %w", err)
	}
	if err := t.client.Publish(topic, payload, true); err != nil {
		return fmt.Errorf("failed to publish discovery config to %s: %w", topic, err)
	}
	return nil
}

// buildStatePayload renders every decoded sensor as one JSON object keyed by
// sensor name. Numeric text from the XML payload is sent as a number.
func buildStatePayload(snap *sensors.Snapshot) ([]byte, error) {
	state := make(map[string]interface{}, len(snap.Sensors)+1)
	for _, s := range snap.Sensors {
		if !s.HasValue {
			continue
		}
		if s.Key == sensors.StateKey {
			state[s.Name] = stateText(s.Value)
			continue
		}
		if f, ok := s.Value.Float64(); ok {
			state[s.Name] = f
		} else {
			state[s.Name] = s.Value.String()
		}
	}
	state["last_update"] = snap.Timestamp.UTC().Format("2006-01-02T15:04:05Z")
	return json.Marshal(state)
}

// stateText maps the raw XML state code onto the same names the CSV path
// produces, so Home Assistant sees one vocabulary.
func stateText(v sensors.Value) string {
	if name, err := sensors.StateName(v.String()); err == nil {
		return name
	}
	return v.String()
}

// Transmit sends sensor data to MQTT
func (t *MQTTTransmitter) Transmit(snap *sensors.Snapshot) error {
	if !t.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	t.publishDiscoveryConfigs(snap)

	payload, err := buildStatePayload(snap)
	if err != nil {
		return fmt.Errorf("failed to build state payload: %w", err)
	}
	topic := t.client.StateTopic()
	if err := t.client.Publish(topic, payload, true); err != nil {
		return fmt.Errorf("failed to publish sensor data to %s: %w", topic, err)
	}
	t.logger.WithFields(logrus.Fields{
		"topic":   topic,
		"payload": string(payload),
	}).Info("Published sensor data")

	if err := t.publishAvailability(true); err != nil {
		return fmt.Errorf("failed to publish availability: %w", err)
	}
	return nil
}

// MarkOffline flags the inverter unavailable, e.g. after sunset.
func (t *MQTTTransmitter) MarkOffline() error {
	if !t.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	return t.publishAvailability(false)
}

func (t *MQTTTransmitter) publishAvailability(online bool) error {
	payload := "online"
	if !online {
		payload = "offline"
	}
	topic := t.client.AvailabilityTopic()
	if err := t.client.Publish(topic, []byte(payload), true); err != nil {
		return fmt.Errorf("failed to publish availability to %s: %w", topic, err)
	}
	return nil
}

// IsConnected checks if the MQTT client is connected
func (t *MQTTTransmitter) IsConnected() bool {
	return t.client.IsConnected()
}

// displayName turns "today_yield" into "Today Yield".
func displayName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		switch strings.ToLower(w) {
		case "co2":
			words[i] = "CO2"
		case "":
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
