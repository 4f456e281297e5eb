package capital

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientConfig contains tuning for the request dispatcher's HTTP client.
type ClientConfig struct {
	// Timeout bounds every upstream call so a stalled platform cannot
	// block a request indefinitely.
	// Default: 30s
	Timeout time.Duration

	// MaxIdleConns is the connection pool size across both environments.
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-host idle connection limit.
	// Default: 10
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// DefaultClientConfig returns the default dispatcher configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Client is the generic request dispatcher. It builds a single upstream
// call using the session manager's token pair, detects session expiry,
// runs exactly one renewal-and-retry cycle per call, and classifies
// upstream failures into the package's error taxonomy.
type Client struct {
	session    *Session
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a dispatcher over per-environment credentials.
// The returned client and its session manager share one pooled HTTP
// client with a bounded per-call timeout.
func NewClient(credentials map[Environment]Credentials, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientConfig().Timeout
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = DefaultClientConfig().MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = DefaultClientConfig().MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = DefaultClientConfig().IdleConnTimeout
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			ForceAttemptHTTP2:   true,
		},
		Timeout: cfg.Timeout,
	}

	return &Client{
		session:    NewSession(credentials, httpClient),
		httpClient: httpClient,
		logger:     slog.Default().With("component", "capital.client"),
	}
}

// Session exposes the session manager for environment selection and
// explicit logout. The token pair itself is never exposed.
func (c *Client) Session() *Session {
	return c.session
}

// SelectEnvironment switches the active upstream environment.
// See Session.SelectEnvironment.
func (c *Client) SelectEnvironment(value string) error {
	return c.session.SelectEnvironment(value)
}

// Close releases idle upstream connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Request performs one authenticated upstream call.
//
// The call sequence is: ensure a token pair is cached (logging in if
// needed), send the request with the platform headers, and on a 401
// run exactly one invalidate-reauthenticate-retry cycle. A second 401
// after the retry, or a failed re-authentication, surfaces as
// AuthError(Unauthorized) with no further attempts. Any other status
// >= 400 is classified as UpstreamError with the platform's error code
// and message when the body carries them.
//
// body is JSON-marshaled when non-nil; params are appended as the query
// string. On success the relayed payload is returned as a Result.
func (c *Client) Request(ctx context.Context, method, path string, body any, params url.Values) (*Result, error) {
	start := time.Now()

	cst, security, generation, err := c.session.ensure(ctx)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	resp, err := c.do(ctx, method, path, payload, params, cst, security)
	if err != nil {
		return nil, err
	}

	renewed := false
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.logger.Info("session expired, renewing",
			"environment", c.session.Environment(),
			"method", method,
			"path", path,
		)

		cst, security, _, err = c.session.renew(ctx, generation)
		if err != nil {
			return nil, &AuthError{Reason: ReasonUnauthorized, Status: http.StatusUnauthorized, Cause: err}
		}

		resp, err = c.do(ctx, method, path, payload, params, cst, security)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.session.Invalidate()
			return nil, &AuthError{Reason: ReasonUnauthorized, Status: http.StatusUnauthorized}
		}
		renewed = true
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "request", Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		code, message := classifyErrorBody(raw)
		return nil, &UpstreamError{Status: resp.StatusCode, Code: code, Message: message}
	}

	result := &Result{
		Status:  resp.StatusCode,
		Renewed: renewed,
		Elapsed: time.Since(start),
	}
	if len(raw) > 0 {
		if isJSONContent(resp.Header.Get("Content-Type")) {
			result.JSON = json.RawMessage(raw)
		} else {
			result.Text = string(raw)
		}
	}
	return result, nil
}

// do sends a single upstream request carrying the platform headers.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, params url.Values, cst, security string) (*http.Response, error) {
	creds, err := c.session.activeCredentials()
	if err != nil {
		return nil, err
	}

	target := creds.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAPIKey, creds.APIKey)
	req.Header.Set(HeaderCST, cst)
	req.Header.Set(HeaderSecurityToken, security)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "request", Cause: err}
	}
	return resp, nil
}

// platformError is the JSON error body shape the platform uses.
type platformError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// classifyErrorBody extracts the platform error code and message from a
// JSON error body, falling back to the raw response text.
func classifyErrorBody(raw []byte) (code, message string) {
	var perr platformError
	if err := json.Unmarshal(raw, &perr); err == nil && (perr.ErrorCode != "" || perr.Message != "") {
		message = perr.Message
		if message == "" {
			message = perr.ErrorCode
		}
		return perr.ErrorCode, message
	}
	return "", strings.TrimSpace(string(raw))
}

// errorMessage derives a human-readable message from an upstream body.
func errorMessage(raw []byte) string {
	_, message := classifyErrorBody(raw)
	return message
}

// isJSONContent reports whether a Content-Type header declares JSON.
func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// drain discards and closes an abandoned response body so the
// underlying connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
