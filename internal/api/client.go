package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storedesk/internal/config"
	"storedesk/internal/resilience"
	"storedesk/internal/telemetry"
)

// Client talks to the marketplace backend.
type Client struct {
	baseURL    string
	client     *http.Client
	attempts   int
	retryDelay time.Duration
	breaker    *resilience.CircuitBreaker

	mu    sync.RWMutex
	token func() string
}

func NewClient(cfg *config.Config) *Client {
	breaker := resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown)
	breaker.IsFailure = isServerFailure

	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		client: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: telemetry.NewTransport(nil),
		},
		attempts:   cfg.RetryAttempts,
		retryDelay: cfg.RetryDelay,
		breaker:    breaker,
	}
}

// SetTokenSource sets where the bearer token comes from. It is read on every
// request, so a later login or logout takes effect immediately.
func (c *Client) SetTokenSource(fn func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = fn
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return ""
	}
	return c.token()
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// getData issues a GET and unwraps the {"data": ...} envelope.
func getData[T any](ctx context.Context, c *Client, path string) (T, error) {
	var env envelope[T]
	err := c.breaker.Execute(func() error {
		return resilience.Retry(ctx, c.attempts, c.retryDelay, func() error {
			err := c.do(ctx, http.MethodGet, path, nil, "", &env)
			if err != nil && !isServerFailure(err) {
				return resilience.Permanent(err)
			}
			return err
		})
	})
	return env.Data, err
}

// sendData issues a non-idempotent request once and unwraps the envelope.
func sendData[T any](ctx context.Context, c *Client, method, path string, payload any) (T, error) {
	var env envelope[T]
	err := c.send(ctx, method, path, payload, &env)
	return env.Data, err
}

func (c *Client) send(ctx context.Context, method, path string, payload any, target any) error {
	var (
		body        io.Reader
		contentType string
	)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.breaker.Execute(func() error {
		return c.do(ctx, method, path, body, contentType, target)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("Request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return err
	}
	defer resp.Body.Close()

	slog.Debug("Request processed", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, requestID)
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
