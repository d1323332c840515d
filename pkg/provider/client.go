package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"redirect-mgmt-go/pkg/models"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// Config holds the provider endpoint and request policy.
type Config struct {
	BaseURL        string
	ShortDomain    string        // host serving the short links, e.g. tinyurl.com
	ShortScheme    string        // defaults to https
	Timeout        time.Duration // per request
	AliasLength    int
	RatePerSecond  float64 // 0 disables pacing
	BackoffInitial time.Duration
}

// Client is an HTTP client for the short-link provider API
type Client struct {
	baseURL        string
	shortDomain    string
	shortScheme    string
	timeout        time.Duration
	aliasLength    int
	backoffInitial time.Duration

	tokens     *TokenPool
	httpClient *http.Client
	limiter    *rate.Limiter
	generator  AliasGenerator
	aliases    *aliasSet
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAliasGenerator replaces the random alias generator.
func WithAliasGenerator(g AliasGenerator) Option {
	return func(c *Client) { c.generator = g }
}

// NewClient creates a new provider client
func NewClient(cfg Config, tokens *TokenPool, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ShortScheme == "" {
		cfg.ShortScheme = "https"
	}
	if cfg.AliasLength <= 0 {
		cfg.AliasLength = 5
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if tokens == nil {
		tokens = NewTokenPool(nil)
	}

	c := &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		shortDomain:    cfg.ShortDomain,
		shortScheme:    cfg.ShortScheme,
		timeout:        cfg.Timeout,
		aliasLength:    cfg.AliasLength,
		backoffInitial: cfg.BackoffInitial,
		tokens:         tokens,
		httpClient:     &http.Client{},
		limiter:        rate.NewLimiter(limit, 1),
		generator:      NewLetterGenerator(),
		aliases:        newAliasSet(),
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShortDomain is the host the provider serves short links from.
func (c *Client) ShortDomain() string {
	return c.shortDomain
}

// Tokens exposes the credential pool.
func (c *Client) Tokens() *TokenPool {
	return c.tokens
}

// buildRequest creates an HTTP request with proper headers
func (c *Client) buildRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "redirect-mgmt")
	if token, _, ok := c.tokens.Current(); ok {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	return req, nil
}

// doJSONRequest sends payload and decodes either response shape. A non-nil
// error is always a transport-level *Error; provider rejections come back
// as a status code plus the decoded errors list.
func (c *Client) doJSONRequest(ctx context.Context, method, path string, payload any, timeout time.Duration) (int, *models.ProviderResponse, error) {
	target := c.baseURL + path

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, newRequestError(target, fmt.Errorf("failed to marshal request: %w", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(reqCtx); err != nil {
		return 0, nil, newNetworkError(err)
	}

	req, err := c.buildRequest(reqCtx, method, path, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, newRequestError(target, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransport(target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, classifyTransport(target, fmt.Errorf("failed to read response: %w", err))
	}

	var out models.ProviderResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil && success(resp.StatusCode) {
			return resp.StatusCode, nil, newMalformedError("failed to parse response", err)
		}
	}
	if !success(resp.StatusCode) && len(out.Errors) == 0 {
		out.Errors = []string{resp.Status}
	}
	return resp.StatusCode, &out, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// classifyTransport maps a transport failure onto the error taxonomy:
// deadlines become network errors, everything else a request error.
func classifyTransport(target string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newNetworkError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newNetworkError(err)
	}
	return newRequestError(target, err)
}
