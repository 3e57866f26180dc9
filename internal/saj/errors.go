package saj

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the inverter rejected the configured credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIncompatiblePayload means the inverter answered with something this
	// reader cannot decode: bad XML, a missing element, a short CSV line, an
	// unknown state code or an unexpected HTTP status.
	ErrIncompatiblePayload = errors.New("unexpected response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Host       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inverter %s returned status %d %s", e.Host, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets errors.Is match the failure class.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return ErrIncompatiblePayload
}

// PayloadError describes why a response body could not be decoded.
type PayloadError struct {
	Host   string
	Detail string
	Err    error
}

func (e *PayloadError) Error() string {
	msg := fmt.Sprintf("unexpected response from %s: %s", e.Host, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Is makes every PayloadError match ErrIncompatiblePayload.
func (e *PayloadError) Is(target error) bool { return target == ErrIncompatiblePayload }
