package domain

import (
	"math"

	"github.com/jkaberg/saj-hass/internal/sensors"
)

// valueEpsilon absorbs float noise from scaling; the inverter itself reports
// at most two decimals.
const valueEpsilon = 1e-6

// Changed returns true if *cur* differs from *prev* in any sensor value or in
// the set of sensors. Timestamps are ignored so that a quiet inverter at
// night does not trigger a transmit on every poll.
func Changed(prev, cur *sensors.Snapshot) bool {
	if prev == nil && cur == nil {
		return false
	}
	if prev == nil || cur == nil {
		return true
	}
	if len(prev.Sensors) != len(cur.Sensors) {
		return true
	}

	for i := range cur.Sensors {
		p, c := prev.Sensors[i], cur.Sensors[i]
		if p.Name != c.Name || p.HasValue != c.HasValue {
			return true
		}
		if !sameValue(p.Value, c.Value) {
			return true
		}
	}
	return false
}

func sameValue(a, b sensors.Value) bool {
	af, aok := a.Float64()
	bf, bok := b.Float64()
	if aok && bok {
		return math.Abs(af-bf) < valueEpsilon
	}
	return a.String() == b.String()
}
