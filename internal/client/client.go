package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"comanda/internal/fault"
)

// Client issues lifecycle commands and snapshot reads against the
// authoritative backend service
type Client struct {
	httpClient *http.Client
	BaseURL    string
	token      string
}

// New creates a backend client. token is the terminal's credential,
// attached to every request unless overridden per call via WithToken.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		BaseURL:    baseURL,
		token:      token,
	}
}

type tokenKey struct{}

// WithToken attaches a caller-specific bearer token to the context,
// overriding the client's configured one for that request
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) tokenFor(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok && tok != "" {
		return tok
	}
	return c.token
}

// apiError is the backend's error payload. Conflict responses may carry the
// already-open account id or the ticket's current state alongside the message.
type apiError struct {
	Error        string `json:"error"`
	AccountID    int64  `json:"cuenta_id,omitempty"`
	CurrentState string `json:"estado_actual,omitempty"`
}

// do issues one JSON request and decodes a 2xx response into out. Non-2xx
// responses are classified by status; callers needing the conflict payload
// use doRaw instead.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, raw, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classify(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fault.Wrap(fault.Transport, err, "malformed response from %s %s", method, path)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body interface{}) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fault.Wrap(fault.Validation, err, "cannot encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, nil, fault.Wrap(fault.Transport, err, "cannot build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.tokenFor(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fault.Wrap(fault.Transport, err, "backend unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fault.Wrap(fault.Transport, err, "failed reading response")
	}
	return resp, raw, nil
}

// classify maps a non-2xx status to the fault taxonomy. The hidden
// redirect-on-401 of older terminals is deliberately not reproduced: auth
// expiry surfaces as a typed fault and session teardown happens above.
func (c *Client) classify(status int, raw []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = fmt.Sprintf("backend returned status %d", status)
	}

	switch status {
	case http.StatusUnauthorized:
		return fault.New(fault.AuthExpired, "%s", msg)
	case http.StatusNotFound:
		return fault.New(fault.NotFound, "%s", msg)
	case http.StatusConflict:
		return fault.New(fault.StateViolation, "%s", msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fault.New(fault.Validation, "%s", msg)
	default:
		return fault.New(fault.Transport, "%s", msg)
	}
}

// Ping checks if the backend is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
