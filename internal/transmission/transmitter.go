package transmission

import "github.com/jkaberg/saj-hass/internal/sensors"

// Transmitter defines the interface for transmitting sensor data
type Transmitter interface {
	Transmit(snap *sensors.Snapshot) error
	MarkOffline() error
	IsConnected() bool
}

// Publisher is the subset of the MQTT client the transmitter needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	IsConnected() bool
	DeviceID() string
	StateTopic() string
	AvailabilityTopic() string
	DiscoveryTopic(prefix, entityType, entityID string) string
}
