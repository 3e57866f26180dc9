package sensors

// definition is one row of the built-in catalog.
type definition struct {
	key, name, unit string
	csvA, csvB      int
	scale           Scale
	perDay, total   bool
	wiredOnly       bool
}

// catalog lists every sensor SAJ firmware reports, in display order. CSV
// columns are taken from the two known WiFi-module firmware layouts.
var catalog = []definition{
	{key: "p-ac", name: "current_power", unit: "W", csvA: 11, csvB: 23},
	{key: "e-today", name: "today_yield", unit: "kWh", csvA: 3, csvB: 3, scale: DivideBy(100), perDay: true},
	{key: "e-total", name: "total_yield", unit: "kWh", csvA: 1, csvB: 1, scale: DivideBy(100), total: true},
	{key: "maxPower", name: "today_max_current", unit: "W", csvA: Absent, csvB: Absent, perDay: true, wiredOnly: true},
	{key: "t-today", name: "today_time", unit: "h", csvA: 4, csvB: 4, scale: DivideBy(10), perDay: true},
	{key: "t-total", name: "total_time", unit: "h", csvA: 2, csvB: 2, scale: DivideBy(10), total: true},
	{key: "CO2", name: "total_co2_reduced", unit: "kg", csvA: 21, csvB: 33, scale: DivideBy(10), total: true},
	{key: "temp", name: "temperature", unit: "°C", csvA: 20, csvB: 32, scale: DivideBy(10)},
	{key: StateKey, name: "state", csvA: 22, csvB: 34},
}

func (d definition) sensor() *Sensor {
	return &Sensor{
		Key:        d.key,
		Name:       d.name,
		Unit:       d.unit,
		CSVIndexA:  d.csvA,
		CSVIndexB:  d.csvB,
		Scale:      d.scale,
		PerDay:     d.perDay,
		Cumulative: d.total,
	}
}
