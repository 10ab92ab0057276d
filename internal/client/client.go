// Package client is a thin wrapper over the /api/events HTTP resource. Each
// call is one round trip with no retries and no client-side validation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "http://localhost:8080/api/events"

// Event is the wire shape of an event. ID is always sent on update, zero
// included, and never sent on create.
type Event struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

type createPayload struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Response is the server's reply. A non-2xx status is not an error: the body
// (usually {"error": "..."}) is returned for the caller to inspect.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// ErrorMessage returns the "error" field of a failed response, if any.
func (r *Response) ErrorMessage() string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ""
	}
	return body.Error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a client for the events resource at baseURL. An empty baseURL
// means DefaultBaseURL. The default transport sets no timeout; bound calls
// through ctx or pass a configured client with WithHTTPClient.
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetEvents(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, nil, nil)
}

func (c *Client) GetNotifications(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, url.Values{"type": {"notifications"}}, nil)
}

func (c *Client) CreateEvent(ctx context.Context, event Event) (*Response, error) {
	return c.do(ctx, http.MethodPost, nil, createPayload{Title: event.Title, Date: event.Date})
}

func (c *Client) UpdateEvent(ctx context.Context, event Event) (*Response, error) {
	return c.do(ctx, http.MethodPut, nil, event)
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) (*Response, error) {
	return c.do(ctx, http.MethodDelete, url.Values{"id": {strconv.FormatInt(id, 10)}}, nil)
}

func (c *Client) do(ctx context.Context, method string, query url.Values, payload any) (*Response, error) {
	target := c.baseURL
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s %s: status %d with non-JSON body %q", method, c.baseURL, resp.StatusCode, truncate(raw, 200))
	}

	return &Response{StatusCode: resp.StatusCode, Body: json.RawMessage(raw)}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
