// Package supabase talks to the hosted platform's Auth and Storage REST APIs.
package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/pkg/config"
	"github.com/noah-isme/compliance-docs-api/pkg/resilience"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the hosted platform.
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	serviceKey string
	bucket     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a client from configuration. A nil httpClient gets one
// with the configured timeout.
func NewClient(httpClient *http.Client, cfg config.SupabaseConfig, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.URL,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		cb:         resilience.NewCircuitBreaker("supabase"),
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrent),
		cfg: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
		},
		logger: logger,
	}, nil
}

// statusError is a non-2xx response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Body)
}

// request describes one call. bearer overrides the service key when set and
// bodyFn is invoked per attempt.
type request struct {
	method      string
	path        string
	bodyFn      func() io.Reader
	contentType string
	bearer      string
	headers     map[string]string
}

// execute runs req through the bulkhead and breaker with retries. Client
// errors (4xx) are not retried.
func (c *Client) execute(ctx context.Context, req request) ([]byte, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var body []byte
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			out, err := c.doRequest(ctx, req)
			if err != nil {
				var se *statusError
				if asStatus(err, &se) && se.Status < http.StatusInternalServerError && se.Status != http.StatusTooManyRequests {
					return resilience.Permanent(err)
				}
				return err
			}
			body = out
			return nil
		})
	})
	return body, err
}

func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	var payload io.Reader
	if r.bodyFn != nil {
		payload = r.bodyFn()
	}
	url := c.baseURL + r.path
	req, err := http.NewRequestWithContext(ctx, r.method, url, payload)
	if err != nil {
		c.logger.Error("supabase: failed to create request", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return nil, err
	}

	bearer := r.bearer
	if bearer == "" {
		bearer = c.serviceKey
	}
	apiKey := c.anonKey
	if apiKey == "" {
		apiKey = c.serviceKey
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read supabase response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &statusError{Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("supabase: request OK", zap.String("method", r.method), zap.String("path", r.path), zap.Int("status", resp.StatusCode))
	return body, nil
}
