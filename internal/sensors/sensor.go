package sensors

import (
	"errors"
	"fmt"
	"time"
)

// Absent marks a sensor that has no column in a CSV schema.
const Absent = -1

// Sensor describes one measurement exposed by the inverter and holds the
// last value decoded for it.
type Sensor struct {
	Key       string // element name in real_time_data.xml
	Name      string
	Unit      string
	CSVIndexA int // column in the short (<24 field) CSV layout
	CSVIndexB int // column in the long CSV layout
	Scale     Scale

	PerDay     bool // resets every day
	Cumulative bool // lifetime counter

	Value       Value
	LastUpdated time.Time
}

// NewSensor validates and builds a sensor definition.
func NewSensor(key, name, unit string, csvA, csvB int, scale Scale, perDay, cumulative bool) (*Sensor, error) {
	if key == "" || name == "" {
		return nil, errors.New("sensor key and name are required")
	}
	if perDay && cumulative {
		return nil, fmt.Errorf("sensor %s cannot be both per-day and cumulative", name)
	}
	if csvA < Absent || csvB < Absent {
		return nil, fmt.Errorf("sensor %s has a negative CSV index", name)
	}
	return &Sensor{
		Key:        key,
		Name:       name,
		Unit:       unit,
		CSVIndexA:  csvA,
		CSVIndexB:  csvB,
		Scale:      scale,
		PerDay:     perDay,
		Cumulative: cumulative,
	}, nil
}

// HasValue reports whether the sensor was ever decoded.
func (s *Sensor) HasValue() bool { return !s.LastUpdated.IsZero() }

// CSVIndex returns the column for the given layout.
func (s *Sensor) CSVIndex(longSchema bool) int {
	if longSchema {
		return s.CSVIndexB
	}
	return s.CSVIndexA
}

func (s *Sensor) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Key)
}
