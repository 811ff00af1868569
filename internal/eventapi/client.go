// Package eventapi is the HTTP client of the event-persistence service.
package eventapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "tzcal/internal/log"
	"tzcal/internal/model"
)

// PersistenceError is returned for any failed call: transport errors, non-2xx
// responses and undecodable bodies. Calls are never retried.
type PersistenceError struct {
	Op         string // "list", "create", "delete", "export"
	StatusCode int    // 0 when no response was received
	Message    string // server-provided error text, if any
	Err        error
}

func (e *PersistenceError) Error() string {
	var b strings.Builder
	b.WriteString("event service ")
	b.WriteString(e.Op)
	b.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Client talks to /api/events on a tzcal server.
type Client struct {
	base     *url.URL
	http     *http.Client
	username string
	password string
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets HTTP Basic credentials on every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL (e.g. "http://127.0.0.1:8080").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("eventapi: invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("eventapi: base url %q needs scheme and host", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type createResponse struct {
	Event model.Event `json:"event"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// List fetches all events.
func (c *Client) List(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := c.do(ctx, "list", http.MethodGet, "/api/events", nil, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// Create posts d and returns the stored event.
func (c *Client) Create(ctx context.Context, d model.Draft) (model.Event, error) {
	var resp createResponse
	if err := c.do(ctx, "create", http.MethodPost, "/api/events", d, &resp); err != nil {
		return model.Event{}, err
	}
	if resp.Event.ID == "" {
		return model.Event{}, &PersistenceError{Op: "create", Err: errors.New("response has no event id")}
	}
	return resp.Event, nil
}

// Delete removes the event with id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &PersistenceError{Op: "delete", Err: errors.New("empty id")}
	}
	return c.do(ctx, "delete", http.MethodDelete, "/api/events/"+url.PathEscape(id), nil, nil)
}

// ExportICS downloads the iCalendar export.
func (c *Client) ExportICS(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/events.ics", nil)
	if err != nil {
		return nil, &PersistenceError{Op: "export", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &PersistenceError{Op: "export", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PersistenceError{Op: "export", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PersistenceError{Op: "export", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		appLog.Error("event service request failed", err, "op", op)
		return &PersistenceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &PersistenceError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		pe := &PersistenceError{Op: op, StatusCode: resp.StatusCode, Message: er.Error}
		appLog.Error("event service returned error status", pe, "op", op)
		return pe
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &PersistenceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
