// Package client is a Go client for the finboard HTTP API.
package client

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

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/export"
)

// maxErrorBody bounds how much of a failed reply is read for its message.
const maxErrorBody = 64 << 10

// Client calls the finboard API. It implements balance.Fetcher.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func New(cfg *config.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, typically after Login.
func (c *Client) SetToken(token string) { c.token = token }

// Session is the reply to a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges credentials for a session token. The token is kept for
// later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var out struct {
		Data Session `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewTransportError("decode login", err)
	}
	c.token = out.Data.Token
	return &out.Data, nil
}

// Fetch returns the balance of the caller's account of kind.
func (c *Client) Fetch(ctx context.Context, kind domain.Kind) (*domain.Balance, error) {
	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/balance/"+url.PathEscape(string(kind)), nil, nil)
	if err != nil {
		c.logger.Warn("Balance fetch failed", "kind", kind, "error", err)
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var out struct {
		Success bool            `json:"success"`
		Data    *domain.Balance `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewTransportError("decode balance", err)
	}
	if !out.Success || out.Data == nil {
		return nil, domain.NewTransportError("fetch balance", fmt.Errorf("unexpected reply: %q", out.Error))
	}
	c.logger.Debug("Balance fetched", "kind", kind, "took", time.Since(start))
	return out.Data, nil
}

// Export is a downloaded transaction export.
type Export struct {
	Filename string
	Body     []byte
}

// Export downloads the caller's transactions in format f. query carries
// the same filters as the listing.
func (c *Client) Export(ctx context.Context, f export.Format, query url.Values) (*Export, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("format", string(f))
	resp, err := c.do(ctx, http.MethodGet, "/transactions/export", q, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransportError("read export", err)
	}
	name := export.Filename(f, time.Now())
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return &Export{Filename: name, Body: body}, nil
}

// do sends the request and turns any non-2xx reply into a domain error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(method+" "+path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close() //nolint:errcheck
	return nil, statusError(method+" "+path, resp)
}

// APIError is a rejected request. It matches the domain sentinel for its
// status class.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.kind }

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := replyMessage(raw)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &APIError{Status: resp.StatusCode, Message: msg, kind: domain.ErrUnauthorized}
	case http.StatusNotFound:
		return &APIError{Status: resp.StatusCode, Message: msg, kind: domain.ErrNotFound}
	}
	return domain.NewTransportError(op, fmt.Errorf("API returned status %d: %s", resp.StatusCode, msg))
}

// replyMessage pulls the human-readable part out of an envelope, problem
// details or plain response.
func replyMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, s := range []string{body.Error, body.Detail, body.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}
