// Package api is the HTTP client for the document service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/docvault/pkg/model"
)

// TokenSource supplies the current bearer credential. A tokenstore.Store
// satisfies it.
type TokenSource interface {
	Load() (credential string, ok bool)
}

// RequestFailed is returned for any transport error or non-2xx response.
// Status is 0 when no response was received.
type RequestFailed struct {
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *RequestFailed) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.Path, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.Path, e.Status, e.Err)
	}
	msg := strings.TrimSpace(e.Body)
	var d model.ServerDetail
	if json.Unmarshal([]byte(e.Body), &d) == nil && d.Message() != "" {
		msg = d.Message()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, msg)
}

func (e *RequestFailed) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the service rejected the credential.
func (e *RequestFailed) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Client is an HTTP client for the document service API. It does not
// retry, cache or rate-limit.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *slog.Logger
}

// NewClient creates an API client. tokens may be nil, in which case every
// request is sent unauthenticated.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Tokens:     tokens,
		Logger:     logger.With("component", "api"),
	}
}

// newRequest builds a request and attaches the bearer credential, if any.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", "req_"+uuid.New().String()[:8])

	if c.Tokens != nil {
		if tok, ok := c.Tokens.Load(); ok && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// send performs req and returns the response when the status is 2xx.
// The caller closes the body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	c.Logger.Debug("HTTP request", "method", req.Method, "url", req.URL.String(),
		"request_id", req.Header.Get("X-Request-ID"), "authenticated", req.Header.Get("Authorization") != "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &RequestFailed{Method: req.Method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.Logger.Debug("HTTP response", "status", resp.StatusCode, "body", string(body))
		return nil, &RequestFailed{Method: req.Method, Path: path, Status: resp.StatusCode, Body: string(body)}
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode)
	return resp, nil
}

// do performs a request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestFailed{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &RequestFailed{Method: method, Path: path, Status: resp.StatusCode, Body: string(respBody),
			Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

// getJSON performs a GET request.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// postJSON performs a POST request with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json", out)
}
