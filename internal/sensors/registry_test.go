package sensors

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietRegistry(mode ConnectivityMode) *Registry {
	r := NewRegistry(mode)
	l := logrus.New()
	l.SetOutput(io.Discard)
	r.SetLogger(l)
	return r
}

func names(r *Registry) []string {
	var out []string
	for s := range r.All() {
		out = append(out, s.Name)
	}
	return out
}

func TestNewRegistry_Wired(t *testing.T) {
	r := NewRegistry(Wired)

	assert.Equal(t, []string{
		"current_power", "today_yield", "total_yield", "today_max_current",
		"today_time", "total_time", "total_co2_reduced", "temperature", "state",
	}, names(r))
	assert.True(t, r.Contains("today_max_current"))
	assert.True(t, r.Contains("maxPower"))
}

func TestNewRegistry_WirelessOmitsMaxPower(t *testing.T) {
	r := NewRegistry(Wireless)

	assert.Equal(t, 8, r.Len())
	assert.False(t, r.Contains("today_max_current"))
	assert.False(t, r.Contains("maxPower"))
}

func TestCatalogClassification(t *testing.T) {
	r := NewRegistry(Wired)
	for s := range r.All() {
		assert.False(t, s.PerDay && s.Cumulative, "%s is both per-day and cumulative", s.Name)
		assert.False(t, s.HasValue(), "%s should start without a value", s.Name)
	}

	yield, err := r.Get("e-today")
	require.NoError(t, err)
	assert.True(t, yield.PerDay)
	assert.Equal(t, "kWh", yield.Unit)
	assert.Equal(t, "/100", yield.Scale.String())

	total, err := r.Get("total_yield")
	require.NoError(t, err)
	assert.True(t, total.Cumulative)
}

func TestGet_ByNameAndKey(t *testing.T) {
	r := NewRegistry(Wired)

	byName, err := r.Get("current_power")
	require.NoError(t, err)
	byKey, err := r.Get("p-ac")
	require.NoError(t, err)
	assert.Same(t, byName, byKey)

	_, err = r.Get("P-AC")
	assert.True(t, errors.Is(err, ErrNotFound), "lookups are case-sensitive")
	assert.False(t, r.Contains("nope"))
}

func TestGet_EarliestWinsAcrossNameAndKey(t *testing.T) {
	r := NewEmptyRegistry()
	first := &Sensor{Key: "alpha", Name: "one"}
	second := &Sensor{Key: "two", Name: "alpha"}
	r.Add(first)
	r.Add(second)

	got, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestAdd_NameCollisionReplaces(t *testing.T) {
	r := quietRegistry(Wired)
	before := r.Len()

	repl := &Sensor{Key: "temp2", Name: "temperature", Unit: "K"}
	replaced, dup := r.Add(repl)

	assert.True(t, replaced)
	assert.False(t, dup)
	assert.Equal(t, before, r.Len())

	got, err := r.Get("temperature")
	require.NoError(t, err)
	assert.Same(t, repl, got)
	assert.False(t, r.Contains("temp"), "old key must be gone with the old sensor")

	all := names(r)
	assert.Equal(t, "temperature", all[len(all)-1], "replacement is appended")
}

func TestAdd_KeyCollisionKeepsBoth(t *testing.T) {
	r := quietRegistry(Wired)
	before := r.Len()

	extra := &Sensor{Key: "p-ac", Name: "current_power_copy"}
	replaced, dup := r.Add(extra)

	assert.False(t, replaced)
	assert.True(t, dup)
	assert.Equal(t, before+1, r.Len())

	orig, err := r.Get("current_power")
	require.NoError(t, err)
	copySensor, err := r.Get("current_power_copy")
	require.NoError(t, err)
	assert.NotSame(t, orig, copySensor)

	byKey, err := r.Get("p-ac")
	require.NoError(t, err)
	assert.Same(t, orig, byKey)
}

func TestAdd_ReplacingKeyHolderHandsKeyOver(t *testing.T) {
	r := quietRegistry(Wired)
	r.Add(&Sensor{Key: "p-ac", Name: "power_copy"})
	r.Add(&Sensor{Key: "other", Name: "current_power"})

	got, err := r.Get("p-ac")
	require.NoError(t, err)
	assert.Equal(t, "power_copy", got.Name)
}

func TestAll_IsRestartable(t *testing.T) {
	r := quietRegistry(Wireless)
	first := names(r)
	assert.Equal(t, first, names(r))

	r.Add(&Sensor{Key: "x", Name: "extra"})
	assert.Len(t, names(r), len(first)+1)

	count := 0
	for range r.All() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestApplyAndSnapshot(t *testing.T) {
	r := quietRegistry(Wireless)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	n := r.Apply([]Reading{
		{Name: "current_power", Value: NumberValue(1234), At: at},
		{Name: "state", Value: TextValue("Normal"), At: at},
		{Name: "unknown", Value: NumberValue(1), At: at},
	})
	assert.Equal(t, 2, n)

	p, err := r.Get("p-ac")
	require.NoError(t, err)
	assert.Equal(t, at, p.LastUpdated)
	f, ok := p.Value.Float64()
	require.True(t, ok)
	assert.Equal(t, 1234.0, f)

	snap := r.Snapshot()
	assert.Len(t, snap.Sensors, r.Len())
	vals := snap.Values()
	assert.Len(t, vals, 2)
	assert.Equal(t, "Normal", vals["state"].String())

	st, ok := snap.Get("temp")
	require.True(t, ok)
	assert.False(t, st.HasValue)

	// The snapshot is a copy.
	p.Value = NumberValue(1)
	again, _ := snap.Get("current_power")
	assert.Equal(t, "1234", again.Value.String())
}

func TestNewSensor_Validation(t *testing.T) {
	_, err := NewSensor("k", "n", "", 0, 0, NoScale, true, true)
	assert.Error(t, err)

	_, err = NewSensor("", "n", "", 0, 0, NoScale, false, false)
	assert.Error(t, err)

	_, err = NewSensor("k", "n", "", -2, 0, NoScale, false, false)
	assert.Error(t, err)

	s, err := NewSensor("k", "n", "W", Absent, 5, DivideBy(10), false, true)
	require.NoError(t, err)
	assert.Equal(t, Absent, s.CSVIndex(false))
	assert.Equal(t, 5, s.CSVIndex(true))
}
