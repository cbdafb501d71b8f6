package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"husholdning/internal/workflow"
	"husholdning/pkg/contracts"
)

// maxBodySize bounds how much of an upstream response is read
const maxBodySize = 10 * 1024 * 1024

// ClientConfig configures the shared upstream HTTP client
type ClientConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// DefaultClientConfig returns the client settings used when none are given
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:           15 * time.Second,
		RequestsPerSecond: 2,
		Burst:             4,
		UserAgent:         contracts.GetVersionString(),
	}
}

// Client performs rate limited requests against upstream sites and maps
// transport failures onto workflow error types. It never retries.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// NewClient creates a Client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	def := DefaultClientConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		userAgent: cfg.UserAgent,
		logger:    logger.With(slog.String("component", "connector_client")),
	}
}

// Do sends req on behalf of source and returns the response body
func (c *Client) Do(ctx context.Context, source string, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, classify(source, ctx.Err())
		}
		return nil, workflow.NewUpstreamTimeoutError(source, err)
	}

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "upstream_request_failed",
			slog.String("source", source),
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, classify(source, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "upstream_request",
		slog.String("source", source),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, workflow.NewUpstreamNotFoundError(source, req.URL.String())
	case resp.StatusCode >= 400:
		return nil, workflow.NewUpstreamConnectionError(source,
			fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classify(source, err)
	}
	return body, nil
}

// Get fetches url and returns the body
func (c *Client) Get(ctx context.Context, source, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, workflow.NewUpstreamConnectionError(source, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.Do(ctx, source, req)
}

// GetJSON fetches url and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, source, url string, out any) error {
	body, err := c.Get(ctx, source, url, "application/json")
	if err != nil {
		return err
	}
	return decodeJSON(source, body, out)
}

// PostJSON sends in as JSON to url and decodes the JSON reply into out
func (c *Client) PostJSON(ctx context.Context, source, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return workflow.NewExecutionError(source, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return workflow.NewUpstreamConnectionError(source, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.Do(ctx, source, req)
	if err != nil {
		return err
	}
	return decodeJSON(source, body, out)
}

func decodeJSON(source string, body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return workflow.NewExecutionError(source, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classify maps a transport error onto a workflow error type
func classify(source string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return workflow.NewUpstreamTimeoutError(source, err)
	case errors.Is(err, context.Canceled):
		return workflow.NewCancellationError(source, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return workflow.NewUpstreamTimeoutError(source, err)
	default:
		return workflow.NewUpstreamConnectionError(source, err)
	}
}
