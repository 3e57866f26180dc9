package saj

import (
	"fmt"

	"github.com/jkaberg/saj-hass/internal/sensors"
)

// Outcome classifies a read.
type Outcome int

const (
	Success Outcome = iota
	// Offline means the inverter could not be reached. SAJ inverters are
	// powered from the panels and switch off after sunset, so this is routine.
	Offline
	Unauthorized
	IncompatiblePayload
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Offline:
		return "offline"
	case Unauthorized:
		return "unauthorized"
	case IncompatiblePayload:
		return "incompatible_payload"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Outcomes lists every outcome, for pre-declaring metric label values.
func Outcomes() []Outcome {
	return []Outcome{Success, Offline, Unauthorized, IncompatiblePayload}
}

// Result is what a single read produced. Readings is only set on Success; Err
// carries the cause for every other outcome.
type Result struct {
	Outcome  Outcome
	Readings []sensors.Reading
	Err      error
}

// OK reports whether the read succeeded.
func (r Result) OK() bool { return r.Outcome == Success }

func failed(o Outcome, err error) Result {
	return Result{Outcome: o, Err: err}
}
