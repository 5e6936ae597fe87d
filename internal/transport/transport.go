// Package transport builds the outbound HTTP client used by the session
// engine and the resource clients: timeout handling, optional safeurl
// hardening, per-request IDs, and capped response reads.
package transport

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/google/uuid"
)

// ErrResponseTooLarge is returned when a response body exceeds the cap.
var ErrResponseTooLarge = errors.New("transport: response body too large")

const defaultMaxResponseBytes = 1 << 20

// Options configures NewClient.
type Options struct {
	// Timeout bounds one round-trip including body read.
	Timeout time.Duration
	// Harden routes the client through safeurl, blocking private,
	// loopback, link-local, and metadata destinations at dial time.
	Harden bool
	// UserAgent sent on every request.
	UserAgent string
}

// NewClient builds the outbound *http.Client. With Harden set, the dialer
// validates resolved addresses, which also covers DNS rebinding.
func NewClient(opts Options) *http.Client {
	var client *http.Client
	if opts.Harden {
		cfg := safeurl.GetConfigBuilder().
			SetTimeout(opts.Timeout).
			SetAllowedSchemes("http", "https").
			SetAllowedPorts(80, 443).
			Build()
		client = safeurl.Client(cfg).Client
	} else {
		client = &http.Client{Timeout: opts.Timeout}
	}

	client.Transport = &headerTransport{
		base:      client.Transport,
		userAgent: opts.UserAgent,
	}
	return client
}

// headerTransport stamps the User-Agent and a fresh X-Request-Id on every
// outgoing request, leaving caller-set values alone.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	clone := req.Clone(req.Context())
	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	if clone.Header.Get("X-Request-Id") == "" {
		clone.Header.Set("X-Request-Id", uuid.NewString())
	}
	return base.RoundTrip(clone)
}

// ReadBody drains at most max bytes of the response body. A body larger
// than the cap fails with ErrResponseTooLarge rather than truncating
// silently.
func ReadBody(resp *http.Response, max int64) ([]byte, error) {
	if max <= 0 {
		max = defaultMaxResponseBytes
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}
