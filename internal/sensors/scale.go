package sensors

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale converts a raw integer reading from the CSV payload into its unit.
// The zero value means no scaling.
type Scale struct {
	divisor float64
}

// NoScale leaves raw values untouched.
var NoScale = Scale{}

// DivideBy returns a scale that divides raw values by n.
func DivideBy(n float64) Scale {
	if n == 0 || n == 1 {
		return NoScale
	}
	return Scale{divisor: n}
}

// Apply scales a raw value.
func (s Scale) Apply(raw float64) float64 {
	if s.divisor == 0 {
		return raw
	}
	return raw / s.divisor
}

// Divisor returns the divisor, 1 for NoScale.
func (s Scale) Divisor() float64 {
	if s.divisor == 0 {
		return 1
	}
	return s.divisor
}

// String renders the scale the way the device documentation writes it
// ("" or "/100").
func (s Scale) String() string {
	if s.divisor == 0 {
		return ""
	}
	return "/" + strconv.FormatFloat(s.divisor, 'f', -1, 64)
}

// ParseScale reads the "/n" notation. Only a single positive divisor is
// accepted.
func ParseScale(expr string) (Scale, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return NoScale, nil
	}
	if !strings.HasPrefix(expr, "/") {
		return NoScale, fmt.Errorf("invalid scale %q: expected /<divisor>", expr)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(expr[1:]), 64)
	if err != nil || n <= 0 {
		return NoScale, fmt.Errorf("invalid scale %q: divisor must be a positive number", expr)
	}
	return DivideBy(n), nil
}
