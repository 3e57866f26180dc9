package sensors

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Get when no sensor matches.
var ErrNotFound = errors.New("sensor not found")

type entry struct {
	sensor *Sensor
	seq    uint64 // insertion order, survives removals
}

// Registry is the ordered set of sensors for one inverter. Sensors are looked
// up by display name or wire key.
//
// A Registry is not safe for concurrent use; callers serialize reads that
// write into it. Hand Snapshot() to other goroutines instead of the registry.
type Registry struct {
	entries []entry
	byName  map[string]entry
	byKey   map[string]entry
	nextSeq uint64
	logger  logrus.FieldLogger
}

// NewRegistry returns the built-in catalog for the given mode. Wireless
// firmware has no column for today's max power, so that sensor is omitted.
func NewRegistry(mode ConnectivityMode) *Registry {
	r := NewEmptyRegistry()
	for _, def := range catalog {
		if def.wiredOnly && mode == Wireless {
			continue
		}
		r.Add(def.sensor())
	}
	return r
}

// NewEmptyRegistry returns a registry without any sensors.
func NewEmptyRegistry() *Registry {
	return &Registry{
		byName: make(map[string]entry),
		byKey:  make(map[string]entry),
		logger: logrus.StandardLogger(),
	}
}

// SetLogger swaps the logger used for replacement and duplicate warnings.
func (r *Registry) SetLogger(logger logrus.FieldLogger) { r.logger = logger }

// Add appends a sensor. A sensor with the same name is removed first and
// replaced is reported true. A sensor sharing only the key is kept alongside
// and duplicateKey is reported true.
func (r *Registry) Add(s *Sensor) (replaced, duplicateKey bool) {
	if old, ok := r.byName[s.Name]; ok {
		r.remove(old)
		replaced = true
		r.logger.WithFields(logrus.Fields{
			"old": old.sensor.String(),
			"new": s.String(),
		}).Warn("Replacing sensor")
	}

	if _, ok := r.byKey[s.Key]; ok {
		duplicateKey = true
		r.logger.WithField("key", s.Key).Warn("Duplicate SAJ sensor key")
	}

	e := entry{sensor: s, seq: r.nextSeq}
	r.nextSeq++
	r.entries = append(r.entries, e)
	r.byName[s.Name] = e
	if _, ok := r.byKey[s.Key]; !ok {
		r.byKey[s.Key] = e
	}
	return replaced, duplicateKey
}

func (r *Registry) remove(old entry) {
	r.entries = slices.DeleteFunc(r.entries, func(e entry) bool { return e.seq == old.seq })
	delete(r.byName, old.sensor.Name)

	if cur, ok := r.byKey[old.sensor.Key]; ok && cur.seq == old.seq {
		delete(r.byKey, old.sensor.Key)
		// Another sensor may still carry the key; the earliest one takes over.
		for _, e := range r.entries {
			if e.sensor.Key == old.sensor.Key {
				r.byKey[old.sensor.Key] = e
				break
			}
		}
	}
}

// Get returns the sensor whose name or key equals id. When the name matches
// one sensor and the key another, the one added first wins.
func (r *Registry) Get(id string) (*Sensor, error) {
	n, byName := r.byName[id]
	k, byKey := r.byKey[id]
	switch {
	case byName && byKey:
		if k.seq < n.seq {
			return k.sensor, nil
		}
		return n.sensor, nil
	case byName:
		return n.sensor, nil
	case byKey:
		return k.sensor, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Contains reports whether Get would find a sensor.
func (r *Registry) Contains(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// Len returns the number of sensors.
func (r *Registry) Len() int { return len(r.entries) }

// All iterates the sensors in insertion order. Each call starts a fresh pass
// over the current contents.
func (r *Registry) All() iter.Seq[*Sensor] {
	return func(yield func(*Sensor) bool) {
		for _, e := range r.entries {
			if !yield(e.sensor) {
				return
			}
		}
	}
}

// Sensors returns the sensors in insertion order as a new slice.
func (r *Registry) Sensors() []*Sensor {
	out := make([]*Sensor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.sensor)
	}
	return out
}

// Apply commits decoded readings to the sensors they name and returns how many
// were written. Readings for unknown names are ignored.
func (r *Registry) Apply(readings []Reading) int {
	n := 0
	for _, rd := range readings {
		e, ok := r.byName[rd.Name]
		if !ok {
			r.logger.WithField("sensor", rd.Name).Debug("Dropping reading for unknown sensor")
			continue
		}
		e.sensor.Value = rd.Value
		e.sensor.LastUpdated = rd.At
		n++
	}
	return n
}

// Snapshot copies the current state of every sensor.
func (r *Registry) Snapshot() *Snapshot {
	snap := &Snapshot{
		Timestamp: time.Now(),
		Sensors:   make([]SensorState, 0, len(r.entries)),
	}
	for _, e := range r.entries {
		s := e.sensor
		snap.Sensors = append(snap.Sensors, SensorState{
			Key:         s.Key,
			Name:        s.Name,
			Unit:        s.Unit,
			PerDay:      s.PerDay,
			Cumulative:  s.Cumulative,
			Value:       s.Value,
			HasValue:    s.HasValue(),
			LastUpdated: s.LastUpdated,
		})
	}
	return snap
}
