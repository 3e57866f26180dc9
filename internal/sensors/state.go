package sensors

import (
	"errors"
	"fmt"
)

// StateKey is the key of the operating state sensor, the only sensor whose
// CSV column is a code rather than a number.
const StateKey = "state"

// ErrUnknownState is returned for state codes outside the table.
var ErrUnknownState = errors.New("unknown inverter state code")

var stateNames = map[string]string{
	"0": "Not connected",
	"1": "Waiting",
	"2": "Normal",
	"3": "Error",
	"4": "Upgrading",
}

// StateName maps a raw state code to its display text.
func StateName(code string) (string, error) {
	name, ok := stateNames[code]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, code)
	}
	return name, nil
}

// StateNames lists every known state text, ordered by code.
func StateNames() []string {
	return []string{"Not connected", "Waiting", "Normal", "Error", "Upgrading"}
}
