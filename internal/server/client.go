package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/alkime/screenrec/internal/session"
)

// APIError is a non-2xx reply from the control server.
type APIError struct {
	StatusCode int
	Message    string
	Status     session.Status
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("control server returned %d", e.StatusCode)
	}

	return e.Message
}

// Conflict reports a request that did not fit the recorder's state, such as
// stopping while idle.
func (e *APIError) Conflict() bool {
	return e.StatusCode == http.StatusConflict
}

// Client talks to a running instance over its control socket.
type Client struct {
	http *http.Client
}

// NewClient returns a client for the socket at path.
func NewClient(path string) *Client {
	dialer := &net.Dialer{Timeout: 2 * time.Second}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", path)
		},
	}

	// stop may wait out the grace period and the kill timeout
	return &Client{http: &http.Client{Transport: transport, Timeout: 30 * time.Second}}
}

// Health reports whether an instance answers on the socket.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}

	return nil
}

func (c *Client) Status(ctx context.Context) (session.Status, error) {
	return c.call(ctx, http.MethodGet, "/v1/status")
}

func (c *Client) Start(ctx context.Context) (session.Status, error) {
	return c.call(ctx, http.MethodPost, "/v1/start")
}

func (c *Client) Stop(ctx context.Context) (session.Status, error) {
	return c.call(ctx, http.MethodPost, "/v1/stop")
}

func (c *Client) TogglePause(ctx context.Context) (session.Status, error) {
	return c.call(ctx, http.MethodPost, "/v1/pause")
}

func (c *Client) call(ctx context.Context, method, path string) (session.Status, error) {
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return session.Status{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return session.Status{}, fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return body.Status, &APIError{StatusCode: resp.StatusCode, Message: body.Error, Status: body.Status}
	}

	return body.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, "http://"+ControlHost+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("is screenrec running? %w", err)
	}

	return resp, nil
}
