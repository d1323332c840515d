// Package probe follows a short link and reports where it lands.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Result is the outcome of following one short link.
type Result struct {
	URL        string
	FinalURL   string
	StatusCode int
	Elapsed    time.Duration
	Err        error
}

// ErrTimeout marks a check that ran out of time.
var ErrTimeout = errors.New("request timed out")

// HTTPError is a final response with an error status.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s for url: %s", e.Status, e.URL)
}

// Diagnostic renders the failure the way it is recorded in a sweep's error set.
func (r Result) Diagnostic() string {
	var he *HTTPError
	switch {
	case r.Err == nil:
		return ""
	case errors.As(r.Err, &he):
		return "HTTP Error: " + he.Error()
	case errors.Is(r.Err, ErrTimeout):
		return "Request timed out!"
	default:
		return fmt.Sprintf("Request Exception: %v", r.Err)
	}
}

type Checker struct {
	Client      *http.Client
	Timeout     time.Duration
	HeadFirst   bool
	MaxBodyRead int64
}

// NewChecker returns a checker that follows redirects with a HEAD request
// and retries with GET when the server rejects HEAD.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{
		Client:      &http.Client{},
		Timeout:     timeout,
		HeadFirst:   true,
		MaxBodyRead: 1 << 16,
	}
}

// Check follows link to its final URL within the checker's timeout.
func (c *Checker) Check(ctx context.Context, link string) Result {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if !c.HeadFirst {
		return c.do(ctx, http.MethodGet, link)
	}

	res := c.do(ctx, http.MethodHead, link)
	// Some servers reject HEAD; fall back to GET
	if res.StatusCode == http.StatusMethodNotAllowed || res.StatusCode == http.StatusNotImplemented {
		return c.do(ctx, http.MethodGet, link)
	}
	var pe *http.ProtocolError
	if res.Err != nil && errors.As(res.Err, &pe) {
		return c.do(ctx, http.MethodGet, link)
	}
	return res
}

func (c *Checker) do(ctx context.Context, method, link string) Result {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return Result{URL: link, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("User-Agent", "redirect-mgmt/monitor")

	start := time.Now()
	resp, err := c.Client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{URL: link, Elapsed: elapsed, Err: err}
	}
	defer resp.Body.Close()

	if method == http.MethodGet {
		_, _ = io.CopyN(io.Discard, resp.Body, c.MaxBodyRead)
	}

	final := link
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	res := Result{URL: link, FinalURL: final, StatusCode: resp.StatusCode, Elapsed: elapsed}
	if resp.StatusCode >= 400 {
		res.Err = &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: final}
	}
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
