// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies

// Package fetcher downloads scripts and sourcemaps over HTTP and locates the
// map a script refers to.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrUnavailable wraps every fetch failure: transport errors and any
// status other than 200 alike.
var ErrUnavailable = errors.New("remote resource unavailable")

// ErrTooLarge is returned when a body exceeds the configured size limit.
var ErrTooLarge = errors.New("response body too large")

// StatusError is a non-200 answer.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("got status code %d for URI %s", e.StatusCode, e.URL)
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "sourcemapx/1.0"
	DefaultMaxBody   = 64 << 20
)

// Options configures New. TLS verification stays on unless Insecure is set.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Proxy     string
	Insecure  bool
	// MaxBody caps a response body in bytes, DefaultMaxBody when zero.
	MaxBody   int64
	Logger    log.FieldLogger
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	log       log.FieldLogger
}

// New builds the HTTP client from opts.
func New(opts Options) (*Fetcher, error) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q", opts.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		transport.ForceAttemptHTTP2 = false
		transport.TLSHandshakeTimeout = 30 * time.Second
		opts.Logger.WithField("proxy", proxyURL.Redacted()).Info("Using proxy")
	}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
		opts.Logger.Warn("TLS verification disabled (insecure mode)")
	}

	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout, Transport: transport},
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBody,
		log:       opts.Logger,
	}, nil
}

// NewWithClient wraps an existing client, mostly for tests.
func NewWithClient(client *http.Client, userAgent string, logger log.FieldLogger) *Fetcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{client: client, userAgent: userAgent, maxBody: DefaultMaxBody, log: logger}
}

// Fetch GETs uri. Any failure is logged and returned wrapping ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	data, err := f.fetch(ctx, uri)
	if err != nil {
		f.log.WithField("uri", uri).WithError(err).Warn("Fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer closeResponse(resp, f.log)

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: uri, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBody {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, f.maxBody)
	}
	return data, nil
}

func closeResponse(resp *http.Response, logger log.FieldLogger) {
	if err := resp.Body.Close(); err != nil {
		logger.Debug(err)
	}
}
