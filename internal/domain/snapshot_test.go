package domain

import (
	"testing"
	"time"

	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/stretchr/testify/assert"
)

func snap(at time.Time, power sensors.Value, state string) *sensors.Snapshot {
	return &sensors.Snapshot{
		Timestamp: at,
		Sensors: []sensors.SensorState{
			{Name: "current_power", Value: power, HasValue: true, LastUpdated: at},
			{Name: "state", Value: sensors.TextValue(state), HasValue: true, LastUpdated: at},
		},
	}
}

func TestChanged(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	base := snap(t0, sensors.NumberValue(1500), "Normal")

	assert.False(t, Changed(nil, nil))
	assert.True(t, Changed(nil, base))
	assert.True(t, Changed(base, nil))

	assert.False(t, Changed(base, snap(t1, sensors.NumberValue(1500), "Normal")), "timestamps are ignored")
	assert.False(t, Changed(base, snap(t1, sensors.TextValue("1500"), "Normal")), "text and number compare numerically")
	assert.True(t, Changed(base, snap(t1, sensors.NumberValue(1501), "Normal")))
	assert.True(t, Changed(base, snap(t1, sensors.NumberValue(1500), "Waiting")))

	shorter := snap(t1, sensors.NumberValue(1500), "Normal")
	shorter.Sensors = shorter.Sensors[:1]
	assert.True(t, Changed(base, shorter))
}
