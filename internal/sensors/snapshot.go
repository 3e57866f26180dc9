package sensors

import "time"

// Reading is one decoded value waiting to be applied to a registry.
type Reading struct {
	Name  string
	Value Value
	At    time.Time
}

// SensorState is the copied state of one sensor inside a Snapshot.
type SensorState struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit,omitempty"`
	PerDay      bool      `json:"per_day,omitempty"`
	Cumulative  bool      `json:"cumulative,omitempty"`
	Value       Value     `json:"value"`
	HasValue    bool      `json:"-"`
	LastUpdated time.Time `json:"last_updated"`
}

// Snapshot is an immutable copy of a registry, safe to share between
// goroutines.
type Snapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Sensors   []SensorState `json:"sensors"`
}

// Get returns the state for a name or key.
func (s *Snapshot) Get(id string) (SensorState, bool) {
	if s == nil {
		return SensorState{}, false
	}
	for _, st := range s.Sensors {
		if st.Name == id || st.Key == id {
			return st, true
		}
	}
	return SensorState{}, false
}

// Values maps sensor names to their values, skipping sensors never decoded.
func (s *Snapshot) Values() map[string]Value {
	out := make(map[string]Value, len(s.Sensors))
	for _, st := range s.Sensors {
		if st.HasValue {
			out[st.Name] = st.Value
		}
	}
	return out
}
