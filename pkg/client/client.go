// Package client provides the outbound HTTP client used to call vendor REST
// APIs, with error classification, retries and request metrics.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for vendor API calls.
var (
	vendorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_vendor_requests_total",
		Help: "Total vendor REST requests by target and status",
	}, []string{"target", "status"})

	vendorRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insight_vendor_request_duration_seconds",
		Help:    "Vendor REST request duration in seconds by target",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"target"})

	vendorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_vendor_errors_total",
		Help: "Total vendor REST errors by target and class",
	}, []string{"target", "class"})
)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 4 << 10

// Client calls one vendor REST API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Target names the vendor API in logs and metrics (e.g. "azure-language").
	Target string

	// BaseURL is the API root, e.g. "https://myres.cognitiveservices.azure.com".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Headers are added to every request (API keys, versions).
	Headers map[string]string

	// Timeout bounds a single HTTP attempt. The caller's context bounds the
	// whole call including retries.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(target, baseURL string) Config {
	return Config{
		Target:    target,
		BaseURL:   baseURL,
		UserAgent: "insight-engine/0.1.0",
		Headers:   map[string]string{},
		Timeout:   10 * time.Second,
	}
}

// New creates a new vendor client.
func New(cfg Config) (*Client, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("target is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  log.With().Str("component", "vendor-client").Str("target", cfg.Target).Logger(),
	}, nil
}

// PostJSON sends body as JSON to path and decodes a 2xx response into out.
// Server, throttling and network failures are retried; client errors are not.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	endpoint := c.resolve(path, query)

	startTime := time.Now()
	defer func() {
		vendorRequestDuration.WithLabelValues(c.config.Target).Observe(time.Since(startTime).Seconds())
	}()

	var respBody []byte
	err = retryWithBackoff(ctx, func() (ErrorClass, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return ErrorClassClient, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		var class ErrorClass
		respBody, class, err = c.do(req)
		return class, err
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.config.Target, err)
	}
	return nil
}

// do executes a single attempt and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, ErrorClass, error) {
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Msg("Executing vendor request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		class := c.classifyError(nil, err)
		vendorErrorsTotal.WithLabelValues(c.config.Target, string(class)).Inc()
		vendorRequestsTotal.WithLabelValues(c.config.Target, "network_error").Inc()
		c.logger.Warn().Err(err).Msg("Vendor request failed")
		return nil, class, &APIError{
			Target:     c.config.Target,
			ErrorClass: class,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	vendorRequestsTotal.WithLabelValues(c.config.Target, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		class := c.classifyError(resp, nil)
		vendorErrorsTotal.WithLabelValues(c.config.Target, string(class)).Inc()

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Str("body", string(snippet)).
			Msg("Vendor request error")

		return nil, class, &APIError{
			Target:     c.config.Target,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrorClassNetwork, &APIError{
			Target:     c.config.Target,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return body, "", nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
