package network

import (
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// newPooledTransport keeps a small pool of keep-alive connections to the API host.
func newPooledTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          5,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       5 * time.Minute,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
}

// httpsOnly refuses to send any request that is not https, including redirects.
type httpsOnly struct {
	next http.RoundTripper
}

func (t *httpsOnly) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || req.URL.Scheme != "https" {
		return nil, ErrInsecureURL
	}
	return t.next.RoundTrip(req)
}

// retryOnConnFailure retries a request exactly once when the connection
// failed before a response was received. HTTP statuses are never retried.
type retryOnConnFailure struct {
	next http.RoundTripper
}

func (t *retryOnConnFailure) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err == nil || !isConnectionFailure(err) || req.Context().Err() != nil {
		return resp, err
	}

	retry := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.next.RoundTrip(retry)
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, ErrInsecureURL) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
