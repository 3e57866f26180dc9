package sensors

import (
	"fmt"
	"strings"
)

// ConnectivityMode selects which firmware flavour the inverter runs. Wired
// (ethernet) units serve an XML document, wireless (WiFi module) units serve a
// single CSV line behind basic auth.
type ConnectivityMode int

const (
	Wired ConnectivityMode = iota
	Wireless
)

func (m ConnectivityMode) String() string {
	switch m {
	case Wired:
		return "wired"
	case Wireless:
		return "wireless"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseConnectivityMode accepts the names users tend to type for either mode.
func ParseConnectivityMode(s string) (ConnectivityMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wired", "ethernet", "lan", "":
		return Wired, nil
	case "wireless", "wifi", "wlan":
		return Wireless, nil
	}
	return Wired, fmt.Errorf("unknown connectivity mode %q (use wired or wireless)", s)
}
