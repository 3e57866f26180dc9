package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLANTransport creates an HTTP transport tuned for talking to a single
// device on the local network. Inverters accept very few parallel
// connections, so idle connections are not kept around.
func NewLANTransport(logger logrus.FieldLogger) *http.Transport {
	return &http.Transport{
		DialContext:           createDialContext(logger),
		DisableKeepAlives:     true,
		MaxIdleConnsPerHost:   1,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func createDialContext(logger logrus.FieldLogger) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if !IsLocalOrPrivateHost(host) {
			logger.WithField("host", host).Debug("Inverter host is not on a private network")
		}
		return dialer.DialContext(ctx, network, addr)
	}
}

// NewHTTPClient creates a client whose every request is bounded by timeout.
func NewHTTPClient(timeout time.Duration, logger logrus.FieldLogger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewLANTransport(logger),
	}
}

// IsLocalOrPrivateHost checks if a hostname is localhost or a private network address
func IsLocalOrPrivateHost(host string) bool {
	host = strings.Trim(host, "[]")
	if host == "localhost" || strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".lan") || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Bare hostnames ("inverter") resolve through the local resolver.
		return !strings.Contains(host, ".")
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// IsUnreachable reports whether err means the device could not be reached at
// all: refused or reset connections, unroutable hosts, DNS failures and
// timeouts. Protocol errors from a device that did answer are not included.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTDOWN) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

// RedactURL removes credentials from a URL for logging.
func RedactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Redacted()
}
