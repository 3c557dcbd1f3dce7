package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultHTTPTimeout      = 30 * time.Second
	defaultRetryAttempts    = 3
	defaultRetryMaxInterval = 5 * time.Second
	maxErrorBodyBytes       = 8192
)

// Config describes a client handle for one instance.
type Config struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// RetryAttempts bounds retries of idempotent GET requests on transient
	// failures. Zero selects the default of 3.
	RetryAttempts        int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// Client is an explicit handle for one content-management instance.
type Client struct {
	baseURL              *url.URL
	token                string
	http                 *http.Client
	logger               *slog.Logger
	retryAttempts        uint64
	retryInitialInterval time.Duration
	retryMaxInterval     time.Duration
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must use http or https", base)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	maxInterval := cfg.RetryMaxInterval
	if maxInterval <= 0 {
		maxInterval = defaultRetryMaxInterval
	}
	return &Client{
		baseURL:              baseURL,
		token:                strings.TrimSpace(cfg.Token),
		http:                 httpClient,
		logger:               logger,
		retryAttempts:        uint64(attempts),
		retryInitialInterval: cfg.RetryInitialInterval,
		retryMaxInterval:     maxInterval,
	}, nil
}

// BaseURL returns the normalized instance base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) applyHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}

// getJSON issues a GET and decodes the response body into out. Transient
// failures (5xx, transport errors) retry with exponential backoff; everything
// else fails immediately.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	operation := func() error {
		body, _, err := c.doRead(ctx, path, query)
		if err != nil {
			if errors.Is(err, ErrTransient) {
				return err
			}
			return backoff.Permanent(err)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("api: decode %s response: %w", path, err))
		}
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	if c.retryInitialInterval > 0 {
		policy.InitialInterval = c.retryInitialInterval
	}
	policy.MaxInterval = c.retryMaxInterval
	return backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(policy, ctx), c.retryAttempts))
}

// doRead performs a single GET, returning the raw body and content type.
func (c *Client) doRead(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("api: build request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("api: %s %s: %w", http.MethodGet, path, errors.Join(ErrTransient, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, "", newError(http.MethodGet, path, resp.StatusCode, body)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("api: read %s response: %w", path, errors.Join(ErrTransient, err))
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// writeJSON issues a single-attempt POST or PATCH with a JSON body.
func (c *Client) writeJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("api: encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}
	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return newError(method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s response: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s response: %w", path, err)
	}
	return nil
}
