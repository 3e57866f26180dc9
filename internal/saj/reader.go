package saj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jkaberg/saj-hass/internal/netutil"
	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/sirupsen/logrus"
)

const (
	// ReadTimeout bounds a whole request, connect to last body byte.
	ReadTimeout = 5 * time.Second

	wiredPath    = "/real_time_data.xml"
	wirelessPath = "/status/status.php"

	maxBodySize = 1 << 20
)

// Reader polls one SAJ inverter. It is immutable after construction and may
// be shared, but reads writing into the same registry must not overlap.
type Reader struct {
	host       string
	mode       sensors.ConnectivityMode
	target     string
	httpClient *http.Client
	logger     logrus.FieldLogger
	now        func() time.Time
}

// Option customises a Reader.
type Option func(*Reader)

// WithHTTPClient replaces the default LAN client.
func WithHTTPClient(c *http.Client) Option { return func(r *Reader) { r.httpClient = c } }

// WithClock replaces time.Now for reading timestamps.
func WithClock(now func() time.Time) Option { return func(r *Reader) { r.now = now } }

// NewReader creates a reader for the inverter at host (host or host:port).
// Wireless firmware needs basic auth; username and password are ignored in
// wired mode.
func NewReader(host string, mode sensors.ConnectivityMode, username, password string, logger logrus.FieldLogger, opts ...Option) *Reader {
	r := &Reader{
		host:   host,
		mode:   mode,
		target: buildTarget(host, mode, username, password),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.httpClient == nil {
		r.httpClient = netutil.NewHTTPClient(ReadTimeout, logger)
	}
	return r
}

func buildTarget(host string, mode sensors.ConnectivityMode, username, password string) string {
	u := url.URL{Scheme: "http", Host: host, Path: wiredPath}
	if mode == sensors.Wireless {
		u.Path = wirelessPath
		if username != "" {
			u.User = url.UserPassword(username, password)
		}
	}
	return u.String()
}

// Host returns the configured inverter address.
func (r *Reader) Host() string { return r.host }

// Mode returns the configured connectivity mode.
func (r *Reader) Mode() sensors.ConnectivityMode { return r.mode }

// Target returns the request URL with credentials redacted.
func (r *Reader) Target() string { return netutil.RedactURL(r.target) }

// Read fetches and decodes the inverter payload and, on success, applies the
// readings to reg. Nothing is written to reg unless the whole pass decoded.
func (r *Reader) Read(ctx context.Context, reg *sensors.Registry) Result {
	res := r.Fetch(ctx, reg)
	if res.OK() {
		reg.Apply(res.Readings)
	}
	return res
}

// Fetch performs one request and decodes it against the sensors in reg
// without modifying them.
func (r *Reader) Fetch(ctx context.Context, reg *sensors.Registry) Result {
	body, res, ok := r.fetch(ctx)
	if !ok {
		return res
	}

	at := r.now()
	var (
		readings []sensors.Reading
		err      error
	)
	switch r.mode {
	case sensors.Wireless:
		readings, err = r.decodeCSV(body, reg, at)
	default:
		readings, err = r.decodeXML(body, reg, at)
	}
	if err != nil {
		r.logger.WithError(err).WithField("host", r.host).Error("SAJ payload could not be decoded")
		return failed(IncompatiblePayload, err)
	}
	return Result{Outcome: Success, Readings: readings}
}

func (r *Reader) fetch(parent context.Context) ([]byte, Result, bool) {
	ctx, cancel := context.WithTimeout(parent, ReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.target, nil)
	if err != nil {
		return nil, failed(IncompatiblePayload, fmt.Errorf("failed to create request for %s: %w", r.host, err)), false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if parent.Err() != nil {
			r.logger.WithField("host", r.host).Debug("SAJ read cancelled")
			return nil, failed(Offline, fmt.Errorf("read from %s cancelled: %w", r.host, err)), false
		}
		if netutil.IsUnreachable(err) || errors.Is(err, context.Canceled) {
			r.logger.WithField("host", r.host).Warn("Connection to SAJ inverter is not possible. " +
				"The inverter may be offline due to darkness. Otherwise check host/ip address.")
			return nil, failed(Offline, fmt.Errorf("inverter %s unreachable: %w", r.host, err)), false
		}
		err = &PayloadError{Host: r.host, Detail: "request failed", Err: err}
		r.logger.WithError(err).Error("SAJ inverter request failed")
		return nil, failed(IncompatiblePayload, err), false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Host: r.host, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusUnauthorized {
			r.logger.WithField("host", r.host).Error("SAJ inverter rejected the credentials")
			return nil, failed(Unauthorized, statusErr), false
		}
		r.logger.WithError(statusErr).Error("Unexpected response from SAJ inverter")
		return nil, failed(IncompatiblePayload, statusErr), false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if netutil.IsUnreachable(err) {
			return nil, failed(Offline, fmt.Errorf("inverter %s went away mid-response: %w", r.host, err)), false
		}
		return nil, failed(IncompatiblePayload, &PayloadError{Host: r.host, Detail: "failed to read response body", Err: err}), false
	}

	r.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"response_size": len(body),
	}).Debug("Received SAJ response")
	return body, Result{}, true
}
