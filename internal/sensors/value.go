package sensors

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Value is a decoded sensor reading. The XML payload and the state sensor
// yield text, scaled CSV columns yield numbers.
type Value struct {
	text    string
	number  float64
	numeric bool
}

// TextValue wraps a textual reading.
func TextValue(s string) Value { return Value{text: s} }

// NumberValue wraps a numeric reading.
func NumberValue(f float64) Value { return Value{number: f, numeric: true} }

// IsNumeric reports whether the value was decoded as a number.
func (v Value) IsNumeric() bool { return v.numeric }

// Float64 returns the numeric form of the value. Text values are parsed, so
// the verbatim XML text "1234" yields 1234.
func (v Value) Float64() (float64, bool) {
	if v.numeric {
		return v.number, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v Value) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// MarshalJSON emits numbers as JSON numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return []byte(strconv.FormatFloat(v.number, 'f', -1, 64)), nil
	}
	return json.Marshal(v.text)
}
