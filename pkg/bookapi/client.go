// Package bookapi is a typed client for the bookstore HTTP API. Reads go
// through a tag-invalidated query cache; every successful mutation
// invalidates the tags it touches so the next read observes server state.
package bookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"bookstore/pkg/domain"
)

// Client calls the bookstore API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache

	mu    sync.RWMutex
	token string
}

// APIError represents an API error response.
type APIError struct {
	Status    int
	Message   string
	Code      string
	RequestID string
	Fields    map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs an API client with an empty cache.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      NewCache(context.Background()),
	}
}

// Cache exposes the query cache backing this client.
func (c *Client) Cache() *Cache {
	return c.cache
}

// SetToken sets the bearer token attached to later requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// LoginResult is the session returned by Login.
type LoginResult struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      struct {
		Username string          `json:"username"`
		Role     domain.UserRole `json:"role"`
	} `json:"user"`
}

// Login authenticates against the admin login route and keeps the token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/admin", body, &res); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req, c.bearer())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message   string            `json:"message"`
			Code      string            `json:"code"`
			RequestID string            `json:"requestId"`
			Errors    map[string]string `json:"errors"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{
			Status:    resp.StatusCode,
			Message:   msg,
			Code:      strings.TrimSpace(errResp.Code),
			RequestID: errResp.RequestID,
			Fields:    errResp.Errors,
		}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func addAuthHeader(req *http.Request, token string) {
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
