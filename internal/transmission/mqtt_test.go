package transmission

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	topic    string
	payload  string
	retained bool
}

type fakePublisher struct {
	connected bool
	failOn    string
	messages  []message
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	if f.failOn != "" && strings.Contains(topic, f.failOn) {
		return errors.New("broker said no")
	}
	f.messages = append(f.messages, message{topic, string(payload), retained})
	return nil
}

func (f *fakePublisher) IsConnected() bool { return f.connected }
func (f *fakePublisher) DeviceID() string { return "roof" }
func (f *fakePublisher) StateTopic() string { return "saj/roof/state" }
func (f *fakePublisher) AvailabilityTopic() string { return "saj/roof/availability" }
func (f *fakePublisher) DiscoveryTopic(prefix, entityType, entityID string) string {
	return prefix + "/" + entityType + "/saj_roof/" + entityID + "/config"
}

func (f *fakePublisher) byTopic(topic string) []message {
	var out []message
	for _, m := range f.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func wiredSnapshot(t *testing.T) *sensors.Snapshot {
	t.Helper()
	reg := sensors.NewRegistry(sensors.Wired)
	at := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	reg.Apply([]sensors.Reading{
		{Name: "current_power", Value: sensors.TextValue("1234"), At: at},
		{Name: "today_yield", Value: sensors.TextValue("7.52"), At: at},
		{Name: "state", Value: sensors.TextValue("2"), At: at},
	})
	snap := reg.Snapshot()
	snap.Timestamp = at
	return snap
}

func TestTransmit(t *testing.T) {
	pub := &fakePublisher{connected: true}
	tx := NewMQTTTransmitter(pub, "homeassistant", "wired", quietLogger())
	snap := wiredSnapshot(t)

	require.NoError(t, tx.Transmit(snap))

	state := pub.byTopic("saj/roof/state")
	require.Len(t, state, 1)
	assert.True(t, state[0].retained)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(state[0].payload), &payload))
	assert.Equal(t, 1234.0, payload["current_power"])
	assert.Equal(t, 7.52, payload["today_yield"])
	assert.Equal(t, "Normal", payload["state"])
	assert.Equal(t, "2024-06-21T12:00:00Z", payload["last_update"])
	assert.NotContains(t, payload, "temperature", "sensors without a value are left out")

	avail := pub.byTopic("saj/roof/availability")
	require.Len(t, avail, 1)
	assert.Equal(t, "online", avail[0].payload)

	disc := pub.byTopic("homeassistant/sensor/saj_roof/today_yield/config")
	require.Len(t, disc, 1)
	var cfg HADiscoveryConfig
	require.NoError(t, json.Unmarshal([]byte(disc[0].payload), &cfg))
	assert.Equal(t, "Today Yield", cfg.Name)
	assert.Equal(t, "energy", cfg.DeviceClass)
	assert.Equal(t, "total_increasing", cfg.StateClass)
	assert.Equal(t, "kWh", cfg.UnitOfMeasurement)
	assert.Equal(t, "roof_today_yield", cfg.UniqueID)
	assert.Equal(t, "{{ value_json.today_yield }}", cfg.ValueTemplate)
	assert.Equal(t, "wired", cfg.Device.Model)

	// Discovery is only sent once.
	before := len(pub.messages)
	require.NoError(t, tx.Transmit(snap))
	assert.Equal(t, before+2, len(pub.messages))
}

func TestSensorConfig_Classes(t *testing.T) {
	tx := NewMQTTTransmitter(&fakePublisher{}, "homeassistant", "wired", quietLogger())
	dev := tx.device()

	power := tx.sensorConfig(sensors.SensorState{Name: "current_power", Key: "p-ac", Unit: "W"}, dev)
	assert.Equal(t, "power", power.DeviceClass)
	assert.Equal(t, "measurement", power.StateClass)

	co2 := tx.sensorConfig(sensors.SensorState{Name: "total_co2_reduced", Key: "CO2", Unit: "kg", Cumulative: true}, dev)
	assert.Equal(t, "weight", co2.DeviceClass)
	assert.Equal(t, "total_increasing", co2.StateClass)
	assert.Equal(t, "Total CO2 Reduced", co2.Name)

	state := tx.sensorConfig(sensors.SensorState{Name: "state", Key: "state"}, dev)
	assert.Equal(t, "enum", state.DeviceClass)
	assert.Empty(t, state.StateClass)
	assert.Contains(t, state.Options, "Normal")
}

func TestTransmit_Disconnected(t *testing.T) {
	tx := NewMQTTTransmitter(&fakePublisher{}, "homeassistant", "wired", quietLogger())
	assert.Error(t, tx.Transmit(wiredSnapshot(t)))
	assert.Error(t, tx.MarkOffline())
	assert.False(t, tx.IsConnected())
}

func TestTransmit_DiscoveryFailureIsRetried(t *testing.T) {
	pub := &fakePublisher{connected: true, failOn: "/config"}
	tx := NewMQTTTransmitter(pub, "homeassistant", "wired", quietLogger())
	snap := wiredSnapshot(t)

	require.NoError(t, tx.Transmit(snap), "discovery failures do not block state")
	assert.Empty(t, tx.publishedSensors)

	pub.failOn = ""
	require.NoError(t, tx.Transmit(snap))
	assert.Len(t, tx.publishedSensors, len(snap.Sensors))
}

func TestTransmit_StateFailure(t *testing.T) {
	pub := &fakePublisher{connected: true, failOn: "/state"}
	tx := NewMQTTTransmitter(pub, "homeassistant", "wired", quietLogger())
	assert.Error(t, tx.Transmit(wiredSnapshot(t)))
}

func TestMarkOffline(t *testing.T) {
	pub := &fakePublisher{connected: true}
	tx := NewMQTTTransmitter(pub, "homeassistant", "wired", quietLogger())

	require.NoError(t, tx.MarkOffline())
	avail := pub.byTopic("saj/roof/availability")
	require.Len(t, avail, 1)
	assert.Equal(t, "offline", avail[0].payload)
	assert.True(t, avail[0].retained)
}
