// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jcodagnone/cerca/metrics"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every single attempt.
const DefaultTimeout = 10 * time.Second

// ClientOptions configuration for Client.
type ClientOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Headers are added to every request (e.g. provider credentials)
	Headers map[string]string

	// Timeout for each attempt, DefaultTimeout when zero
	Timeout time.Duration

	// Retry policy, DefaultRetryPolicy when zero
	Retry RetryPolicy

	// Limiter, when set, is waited on before every attempt
	Limiter *rate.Limiter

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// TraceWriter receives the traces, os.Stderr when nil
	TraceWriter io.Writer

	// Transport is the innermost round tripper, a pooled http.Transport when nil
	Transport http.RoundTripper

	Logger *slog.Logger

	// NewTimer replaces the wall clock between attempts
	NewTimer func() backoff.Timer
}

// Client performs GET requests against JSON APIs, retrying transient
// failures. It knows nothing about the APIs it talks to.
type Client struct {
	client  *http.Client
	options ClientOptions
	logger  *slog.Logger
}

// Request describes one logical call.
type Request struct {
	URL    string
	Params url.Values
	// Timeout overrides the client's per attempt timeout
	Timeout time.Duration
}

// NewClient creates a client with the provided options.
func NewClient(options *ClientOptions) *Client {
	var opts ClientOptions
	if options != nil {
		opts = *options
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		}
	}

	var httpLogWriter io.Writer
	if opts.EnableHTTPTrace || opts.EnableHTTPBodyTrace {
		httpLogWriter = opts.TraceWriter
		if httpLogWriter == nil {
			httpLogWriter = os.Stderr
		}
	}

	loggingTransport := &LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  opts.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "cerca/unknown"
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	headers := map[string]string{
		"User-Agent": userAgent,
		"Accept":     "application/json",
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Client{
		client: &http.Client{
			Transport: &AppendRequestHeadersRoundTripper{
				Headers:   headers,
				Transport: loggingTransport,
			},
		},
		options: opts,
		logger:  logger,
	}
}

// Get issues GET rawURL?params and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, out any) error {
	return c.Do(ctx, Request{URL: rawURL, Params: params}, out)
}

// Do runs req under the retry policy and decodes the JSON body into out (when
// not nil). A decoded but empty payload is a success.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	u, err := url.Parse(req.URL)
	if err != nil {
		return &RequestError{Kind: KindPermanent, Message: "malformed request URL", Err: err}
	}

	if len(req.Params) > 0 {
		q := u.Query()
		for k, vs := range req.Params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}

		u.RawQuery = q.Encode()
	}

	timeout := c.options.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	host := u.Host
	start := time.Now()

	opts := []RetryOption{
		WithNotify(func(err error, attempt int, wait time.Duration) {
			metrics.ProviderRetriesTotal.WithLabelValues(host).Inc()
			c.logger.Warn("retrying provider request",
				"host", host,
				"path", u.Path,
				"attempt", attempt,
				"wait", wait,
				"err", err,
			)
		}),
	}
	if c.options.NewTimer != nil {
		opts = append(opts, WithTimer(c.options.NewTimer()))
	}

	err = Retry(ctx, c.options.Retry, func(ctx context.Context, _ int) error {
		return c.attempt(ctx, u, timeout, out)
	}, opts...)

	metrics.ProviderDurationMs.WithLabelValues(host).Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.ProviderFailuresTotal.WithLabelValues(host, kindOf(err).String()).Inc()
		c.logger.Debug("provider request failed", "host", host, "path", u.Path, "err", err)

		return fmt.Errorf("GET %s%s: %w", host, u.Path, err)
	}

	return nil
}

func (c *Client) attempt(ctx context.Context, u *url.URL, timeout time.Duration, out any) error {
	if c.options.Limiter != nil {
		if err := c.options.Limiter.Wait(ctx); err != nil {
			return &RequestError{Kind: KindPermanent, Message: "rate limiter", Err: err}
		}
	}

	metrics.ProviderRequestsTotal.WithLabelValues(u.Host).Inc()

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &RequestError{Kind: KindPermanent, Message: "building request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))

		return ClassifyStatus(resp.StatusCode, string(excerpt))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if attemptCtx.Err() != nil {
			return classifyTransportError(ctx, err)
		}

		return &RequestError{
			Kind:       KindPermanent,
			StatusCode: resp.StatusCode,
			Message:    "decoding response body",
			Err:        fmt.Errorf("%w: %w", ErrMalformedResponse, err),
		}
	}

	return nil
}
