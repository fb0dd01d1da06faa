// Package client dispatches authenticated requests against the Admin API.
// It obtains bearer tokens from the auth manager, applies the bounded
// timeout and rate limit, and normalizes every response into a Result or a
// typed error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mkellner/shopctl/internal/apierr"
	"github.com/mkellner/shopctl/internal/auth"
)

// TokenSource supplies bearer tokens. *auth.Manager is the production
// implementation.
type TokenSource interface {
	Bearer(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// Result is the normalized outcome of a successful (2xx) dispatch. Body is
// the decoded JSON document when the response declared a JSON content type;
// Raw always carries the response bytes.
type Result struct {
	StatusCode int
	Body       any
	Raw        []byte
}

// Client is the request dispatcher. It is stateless per call and safe for
// concurrent use.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient HTTPClient
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outbound requests. The default limiter is unlimited.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// New creates a dispatcher for the given store base URL. The base URL must
// already be normalized (no trailing slash).
func New(baseURL string, tokens TokenSource, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: NewHTTPClient(),
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOption adjusts a single dispatch.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

// WithHeader sets an extra header on the outgoing request.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) { rc.headers.Set(key, value) }
}

// Dispatch sends one authenticated request. endpoint is relative to the
// store's /api root (e.g. "/search/product"); params become the query
// string. A 401 triggers exactly one forced token refresh and one retry.
//
// A context cancelled mid-call surfaces as a TransportError; a write that
// already committed on the remote is not rolled back by the abandonment.
func (c *Client) Dispatch(ctx context.Context, method, endpoint string, body any, params url.Values, opts ...RequestOption) (*Result, error) {
	rc := requestConfig{headers: http.Header{}}
	for _, opt := range opts {
		opt(&rc)
	}

	endpoint, err := c.validate(method, endpoint, body)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &apierr.ValidationError{Detail: fmt.Sprintf("request body is not serializable: %v", err)}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &apierr.TransportError{Op: "rate limit wait", Err: err}
	}

	token, err := c.tokens.Bearer(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, endpoint, payload, params, rc.headers, token)
	if err != nil {
		return nil, err
	}

	// Explicit two-step retry: one forced refresh, one more dispatch, then
	// surface whatever comes back.
	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		c.logger.Warn().
			Str("method", method).
			Str("endpoint", endpoint).
			Msg("received 401, forcing token refresh and retrying once")

		token, err = c.tokens.ForceRefresh(ctx)
		if err != nil {
			return nil, err
		}

		resp, err = c.send(ctx, method, endpoint, payload, params, rc.headers, token)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, &apierr.AuthError{StatusCode: resp.StatusCode, Detail: string(detail)}
		}
	}

	return c.finalize(method, endpoint, resp)
}

// Get is a convenience wrapper for schema-discovery passthroughs and other
// plain GET calls.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Result, error) {
	return c.Dispatch(ctx, http.MethodGet, endpoint, nil, params)
}

func (c *Client) validate(method, endpoint string, body any) (string, error) {
	switch method {
	case http.MethodGet, http.MethodDelete:
		if body != nil {
			return "", &apierr.ValidationError{Detail: fmt.Sprintf("%s requests must not carry a body", method)}
		}
	case http.MethodPost, http.MethodPatch:
		if body == nil {
			return "", &apierr.ValidationError{Detail: fmt.Sprintf("%s requests require a body", method)}
		}
	default:
		return "", &apierr.ValidationError{Detail: fmt.Sprintf("unsupported method %q", method)}
	}

	if strings.Contains(endpoint, "://") {
		return "", &apierr.ValidationError{Detail: "endpoint must be relative to the store base URL"}
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, params url.Values, headers http.Header, token string) (*http.Response, error) {
	target := c.baseURL + "/api" + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &apierr.ValidationError{Detail: fmt.Sprintf("failed to build request: %v", err)}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("body_bytes", len(payload)).
		Msg("dispatching request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apierr.TransportError{Op: method + " " + endpoint, Err: err}
	}
	return resp, nil
}

// finalize reads the response and maps it onto the Result/error contract:
// either a populated Result or a typed error, never both.
func (c *Client) finalize(method, endpoint string, resp *http.Response) (*Result, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apierr.TransportError{Op: "read response body", Err: err}
	}

	c.logger.Info().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status_code", resp.StatusCode).
		Int("response_bytes", len(raw)).
		Msg("request finished")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result := &Result{StatusCode: resp.StatusCode, Raw: raw}
		if isJSON(resp.Header.Get("Content-Type")) && len(raw) > 0 {
			var body any
			if err := json.Unmarshal(raw, &body); err == nil {
				result.Body = body
				c.logSummary(method, endpoint, body)
			}
		}
		return result, nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &apierr.NotFoundError{}
	}

	return nil, &apierr.RemoteError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Payload:    raw,
	}
}

// logSummary mirrors the Admin API's data/total envelope in the logs without
// dumping whole payloads.
func (c *Client) logSummary(method, endpoint string, body any) {
	doc, ok := body.(map[string]any)
	if !ok {
		return
	}
	data, ok := doc["data"]
	if !ok {
		return
	}
	count := 1
	if list, ok := data.([]any); ok {
		count = len(list)
	}
	event := c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("items", count)
	if total, ok := doc["total"].(float64); ok {
		event = event.Int("total", int(total))
	}
	event.Msg("response summary")
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

var _ TokenSource = (*auth.Manager)(nil)
