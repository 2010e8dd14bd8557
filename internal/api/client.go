// Package api is the typed gateway to the reconciliation backend. It
// performs no retries and holds no state; retry policy belongs to the
// callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when the caller's context does not.
const DefaultTimeout = 30 * time.Second

// Client issues requests against the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a gateway for the given base URL. A base URL
// without a version segment gets "/api/v1" appended, so both
// "http://host" and "http://host/api/v1" are accepted.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    normalizeBaseURL(baseURL),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

var versionSegment = regexp.MustCompile(`/v\d+(/|$)`)

func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !versionSegment.MatchString(trimmed) {
		trimmed += "/api/v1"
	}
	return trimmed
}

// envelope is the uniform response wrapper: {success, data} on success,
// {success:false, error:{message, code, details?}} on failure.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *wireError      `json:"error"`
}

type wireError struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// doJSON marshals payload (if any) as a JSON body and performs the call.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, body, contentType, out)
}

// do performs one request and normalizes every failure into *Error.
// A 204 response leaves out untouched and returns nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Error{Code: CodeUnknownError, Message: fmt.Sprintf("building request: %v", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &Error{Status: resp.StatusCode, Code: CodeUnknownError, Message: "malformed response body"}
		}
		return &Error{
			Status:  resp.StatusCode,
			Code:    CodeAPIError,
			Message: fmt.Sprintf("request failed with status %d", resp.StatusCode),
		}
	}

	if !env.Success || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode, Code: CodeAPIError}
		if env.Error != nil {
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
			if env.Error.Code != "" {
				apiErr.Code = env.Error.Code
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Status: resp.StatusCode, Code: CodeUnknownError, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

// classify converts transport errors into the gateway taxonomy. Context
// cancellation and deadline expiry count as aborts, everything else at
// this level is a network failure.
func classify(err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeAbortError, Message: "request aborted"}
	}
	return &Error{Code: CodeNetworkError, Message: err.Error()}
}
