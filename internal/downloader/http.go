package downloader

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent is a desktop browser identifier; some origins reject Go's default.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 30 * time.Second,
	IdleConnTimeout:       90 * time.Second,
}

// CloseIdleConnections drops pooled connections of the shared transport.
func CloseIdleConnections() {
	sharedTransport.CloseIdleConnections()
}

type consistentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *consistentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient returns a client that presents userAgent on every request.
// Segment fetches use retry=false: a failed transfer is never retried.
func NewHTTPClient(timeout time.Duration, userAgent string, retry bool) *http.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	var transport http.RoundTripper = &consistentTransport{
		base:      sharedTransport,
		userAgent: userAgent,
	}
	if retry {
		transport = newRetryTransport(transport, defaultRetryConfig)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
