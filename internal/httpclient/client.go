// Package httpclient runs curl-style requests with browser cookies
// re-applied on every redirect hop.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gurl-cli/gurl/internal/cookies"
	"github.com/gurl-cli/gurl/pkg/logger"
)

const defaultMaxRedirects = 10

// Config describes one request pipeline. Timeouts are carried on the
// context passed to Do, not configured here.
type Config struct {
	Method string
	// Header holds caller-supplied headers, applied to every hop.
	// Authorization is dropped automatically once a redirect leaves the
	// original host.
	Header http.Header
	Body   []byte

	FollowRedirects bool
	// MaxRedirects caps the number of followed hops. Zero means the
	// default of 10.
	MaxRedirects int

	// Insecure disables TLS certificate verification.
	Insecure bool

	UserAgent string
	Retry     RetryConfig

	// Jar supplies browser cookies. Nil sends no cookies.
	Jar *cookies.Jar

	Log logger.Logger
}

// Client executes requests. Redirects are followed manually so the
// cookie header can be recomputed for each hop's URL.
type Client struct {
	cfg Config
	hc  *http.Client
	now func() time.Time
}

func New(cfg Config) *Client {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.Retry.BackoffFactor == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNopLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		now: time.Now,
	}
}

// Do runs the request against rawURL, following redirects per the
// config. The caller owns the returned response body.
func (c *Client) Do(ctx context.Context, rawURL string) (*http.Response, error) {
	original, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %v", rawURL, err)
	}

	current := original
	method := c.cfg.Method
	body := c.cfg.Body

	for hop := 0; ; hop++ {
		resp, err := c.send(ctx, method, current, original, body, hop > 0)
		if err != nil {
			return nil, err
		}

		if !c.cfg.FollowRedirects || !isRedirect(resp.StatusCode) {
			return resp, nil
		}
		location := resp.Header.Get("Location")
		if location == "" {
			return resp, nil
		}
		if hop >= c.cfg.MaxRedirects {
			drain(resp)
			return nil, fmt.Errorf("stopped after %d redirects", c.cfg.MaxRedirects)
		}

		next, err := current.Parse(location)
		if err != nil {
			drain(resp)
			return nil, fmt.Errorf("bad redirect location %q: %v", location, err)
		}
		// 303 always demotes to GET; 301/302 demote non-GET methods the
		// way curl and the browsers do.
		if resp.StatusCode == http.StatusSeeOther ||
			((resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound) && method != http.MethodGet && method != http.MethodHead) {
			method = http.MethodGet
			body = nil
		}
		drain(resp)
		c.cfg.Log.Debug("redirect %d: %s", hop+1, next)
		current = next
	}
}

// send performs one hop, retrying transient failures with backoff.
func (c *Client) send(ctx context.Context, method string, target, original *url.URL, body []byte, redirected bool) (*http.Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		req, err := c.buildRequest(ctx, method, target, original, body, redirected)
		if err != nil {
			return nil, err
		}

		resp, err := c.hc.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("server responded %s", resp.Status)
			if attempt >= c.cfg.Retry.MaxRetries {
				// Out of retries: hand the last response to the caller
				// rather than discarding it.
				return resp, nil
			}
			drain(resp)
		} else {
			if !retryableError(err) || attempt >= c.cfg.Retry.MaxRetries {
				return nil, err
			}
			lastErr = err
		}

		delay := c.cfg.Retry.Backoff(attempt + 1)
		c.cfg.Log.Debug("retrying %s in %v: %v", target.Host, delay, lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) buildRequest(ctx context.Context, method string, target, original *url.URL, body []byte, redirected bool) (*http.Request, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}

	for k, vs := range c.cfg.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if redirected && cookies.HostChanged(original, target) {
		req.Header.Del("Authorization")
	}
	if c.cfg.Jar != nil {
		if header := c.cfg.Jar.HeaderFor(target, c.now()); header != "" {
			req.Header.Set("Cookie", header)
		} else {
			req.Header.Del("Cookie")
		}
	}
	return req, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// drain discards a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
