// Package gateway issues HTTP calls to the backend, attaching the current
// session token as a bearer credential. It maps failures onto a small error
// taxonomy and leaves retry policy to callers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/log"
)

// TokenSource supplies the bearer token for outgoing requests. It is read
// on every call, never captured at construction time, so a login or logout
// elsewhere takes effect immediately.
type TokenSource interface {
	Token() string
}

// Config holds gateway configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Logger  *log.Logger
}

// Client is the single HTTP boundary of the application.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
	log    *log.Logger
}

// New creates a gateway client. A nil TokenSource means every request goes
// out unauthenticated.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		tokens: cfg.Tokens,
		log:    logger.WithComponent(log.ComponentGateway),
	}
}

// Send performs one request. body (when non-nil) is marshalled to JSON; a
// 2xx response body is decoded into out (when non-nil and non-empty).
// Failures are *NetworkError or *HTTPError; there are no automatic retries.
func (c *Client) Send(ctx context.Context, method, path string, body, out any) error {
	url := c.base + path

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "Request failed",
			log.FieldRequestID, requestID,
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldError, err.Error())
		return &NetworkError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, URL: url, Err: err}
	}

	c.log.DebugContext(ctx, "Request completed",
		log.FieldRequestID, requestID,
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Body: respBody}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
