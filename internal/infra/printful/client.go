// Package printful is a small client for the print partner's store, shipping
// and order APIs.
package printful

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

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
)

const (
	serviceName     = "printful"
	defaultBaseURL  = "https://api.printful.com"
	maxResponseSize = 2 * 1024 * 1024
)

type Config struct {
	BaseURL string
	APIKey  string
	StoreID string
	Timeout time.Duration
	// BreakerFailures consecutive failures open the breaker for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

type Client struct {
	baseURL    string
	apiKey     string
	storeID    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

// envelope is the partner's response wrapper.
type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse printful base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid printful base url: %s", baseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		storeID:    strings.TrimSpace(cfg.StoreID),
		httpClient: httpClient,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    serviceName,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A 4xx is the caller's fault and says nothing about partner health.
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c, nil
}

// DoJSON sends requestBody as JSON and decodes the envelope result into responseBody.
func (c *Client) DoJSON(ctx context.Context, op, method, path string, requestBody, responseBody any) error {
	if c == nil || c.httpClient == nil {
		return &errs.UpstreamError{Service: serviceName, Op: op, Err: errors.New("printful client is not initialized")}
	}

	var payload []byte
	if requestBody != nil {
		raw, err := json.Marshal(requestBody)
		if err != nil {
			return &errs.UpstreamError{Service: serviceName, Op: op, Err: fmt.Errorf("marshal request body: %w", err)}
		}
		payload = raw
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, op, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &errs.UpstreamError{Service: serviceName, Op: op, Err: err}
		}
		return err
	}
	if responseBody == nil || len(body) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &errs.UpstreamError{Service: serviceName, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, responseBody); err != nil {
		return &errs.UpstreamError{Service: serviceName, Op: op, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+ensureLeadingSlash(path), bodyReader)
	if err != nil {
		return nil, &errs.UpstreamError{Service: serviceName, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.storeID != "" {
		req.Header.Set("X-PF-Store-Id", c.storeID)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.UpstreamError{Service: serviceName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &errs.UpstreamError{Service: serviceName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errs.UpstreamError{
			Service:    serviceName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorMessage(raw, resp.StatusCode)),
		}
	}

	return raw, nil
}

func errorMessage(raw []byte, status int) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != nil && strings.TrimSpace(env.Error.Message) != "" {
			return strings.TrimSpace(env.Error.Message)
		}
		var result string
		if json.Unmarshal(env.Result, &result) == nil && strings.TrimSpace(result) != "" {
			return strings.TrimSpace(result)
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && len(msg) <= 512 {
		return msg
	}
	return http.StatusText(status)
}

// IsNotFound reports a 404 from the partner.
func IsNotFound(err error) bool {
	var upstream *errs.UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound
}

func isClientError(err error) bool {
	var upstream *errs.UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500
}

func ensureLeadingSlash(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "/"
	}
	if strings.HasPrefix(trimmed, "/") {
		return trimmed
	}
	return "/" + trimmed
}
