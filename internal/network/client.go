// Package network is the HTTPS-only client used for every call to the mTolling API.
package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"mtolling/internal/logging"
	"mtolling/internal/metrics"
)

const (
	// DefaultTimeout bounds connect, read and write for a whole request.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent on every request.
	DefaultUserAgent = "ViaVerde-Agent/1.0"

	maxBodyBytes = 8 << 20
)

// Config holds client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport is the base round tripper. A pooled transport is used when nil.
	Transport http.RoundTripper
	Logger    *logrus.Entry
}

// Client performs authenticated JSON requests against a single HTTPS host.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
	log        *logrus.Entry
}

// New creates a Client. A base URL that is not https is a configuration error.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, &Error{Kind: KindConfig, Err: fmt.Errorf("parse base url: %w", err)}
	}
	if base.Scheme != "https" || base.Host == "" {
		return nil, &Error{Kind: KindConfig, Err: fmt.Errorf("%w: %q", ErrInsecureURL, cfg.BaseURL)}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	transport := cfg.Transport
	if transport == nil {
		transport = newPooledTransport(cfg.Timeout)
	}
	rt := newrelic.NewRoundTripper(&httpsOnly{next: &retryOnConnFailure{next: transport}})

	return &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: rt,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if req.URL.Scheme != "https" {
					return ErrInsecureURL
				}
				if len(via) >= 5 {
					return fmt.Errorf("stopped after %d redirects", len(via))
				}
				return nil
			},
		},
		log: cfg.Logger,
	}, nil
}

// Get performs a GET and returns the raw response body.
func (c *Client) Get(ctx context.Context, path, token string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, token)
}

// Post sends a JSON body and returns the raw response body.
func (c *Client) Post(ctx context.Context, path string, body []byte, token string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, token)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, token string) ([]byte, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "path": path})
	if body != nil {
		log.Debugf("request body: %s", logging.MaskSensitive(string(body)))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(method, "transport_error", time.Since(start))
		log.WithError(err).Warn("request failed")
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveAPIRequest(method, "http_error", time.Since(start))
		log.WithField("status", resp.StatusCode).Warn("request rejected")
		return nil, &Error{Kind: KindProtocol, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if readErr != nil {
		metrics.ObserveAPIRequest(method, "transport_error", time.Since(start))
		log.WithError(readErr).Warn("read response failed")
		return nil, &Error{Kind: KindTransport, Err: readErr}
	}

	metrics.ObserveAPIRequest(method, "ok", time.Since(start))
	log.WithField("status", resp.StatusCode).Debugf("response body: %s", logging.MaskSensitive(string(payload)))
	return payload, nil
}

// resolve joins path onto the base URL and re-checks the scheme.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", &Error{Kind: KindConfig, Err: fmt.Errorf("parse path: %w", err)}
	}

	var target *url.URL
	if ref.IsAbs() {
		target = ref
	} else {
		joined := *c.baseURL
		joined.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
		joined.RawQuery = ref.RawQuery
		target = &joined
	}

	if target.Scheme != "https" {
		return "", &Error{Kind: KindConfig, Err: fmt.Errorf("%w: %q", ErrInsecureURL, target.String())}
	}
	return target.String(), nil
}
