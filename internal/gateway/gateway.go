// Package gateway is the JSON-over-HTTP transport shared by the account,
// content and recommendation service clients.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"beatsphere/internal/domain"
)

// DefaultTimeout bounds every upstream call unless configured otherwise.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 4 << 10

// Client talks to one upstream service.
type Client struct {
	service string
	baseURL string
	http    *http.Client
}

// New returns a Client for service rooted at baseURL. A nil httpClient gets
// DefaultTimeout and no cookie jar.
func New(service, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// NewHTTPClient builds the process-wide http.Client. The jar carries the
// account service's HTTP-only session cookie to every upstream.
func NewHTTPClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout, Jar: jar}
}

// NewCookieJar returns an in-memory cookie jar.
func NewCookieJar() http.CookieJar {
	// cookiejar.New only fails on a bad PublicSuffixList, and nil is valid.
	jar, _ := cookiejar.New(nil)
	return jar
}

func (c *Client) Get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.do(ctx, op, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, op, path string, in, out any) error {
	return c.do(ctx, op, http.MethodPost, path, nil, in, out)
}

func (c *Client) Put(ctx context.Context, op, path string, in, out any) error {
	return c.do(ctx, op, http.MethodPut, path, nil, in, out)
}

func (c *Client) Delete(ctx context.Context, op, path string) error {
	return c.do(ctx, op, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", c.service, op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return c.fail(op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var cause error
		if s := strings.TrimSpace(string(msg)); s != "" {
			cause = errors.New(s)
		}
		return c.fail(op, resp.StatusCode, cause)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(op, resp.StatusCode, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) fail(op string, status int, err error) error {
	return &domain.NetworkError{Service: c.service, Op: op, Status: status, Err: err}
}

// PathID escapes an id for use as a path segment.
func PathID(id domain.ID) string {
	return url.PathEscape(id.String())
}
