package youtube

// Transport layer for the YouTube Data API v3.
// Knows nothing about channels: it signs requests with the API key, paces them,
// retries transient failures and hands back raw bodies or *retry.HTTPError.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64 // <= 0 disables pacing
	HTTPClient        *http.Client
}

type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retryOptions    retry.Options
	maxResponseSize int64
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	var rateLimiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "YouTubeAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// client errors such as quota or bad ids say nothing about API health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var he *retry.HTTPError
			return errors.As(err, &he) && he.StatusCode < 500 && he.StatusCode != http.StatusTooManyRequests
		},
	})

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:        baseURL,
		apiKey:         opts.APIKey,
		httpClient:     httpClient,
		rateLimiter:    rateLimiter,
		circuitBreaker: circuitBreaker,
		retryOptions: retry.Options{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   10 * time.Second,
		},
		maxResponseSize: 2 * 1024 * 1024,
	}
}

// MakeRequest performs GET baseURL+endpoint?params&key=... with pacing,
// circuit breaking and transient retries.
func (c *Client) MakeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	var respBody []byte
	err := retry.Do(ctx, c.retryOptions, func() error {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		requestID := logging.GenerateRequestID()
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.makeRequestWithContext(ctx, requestID, endpoint, params)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				logging.LogError("Circuit breaker rejected request", zap.String("request_id", requestID), zap.String("endpoint", endpoint), zap.Error(err))
			}
			return err
		}
		respBody = result.([]byte)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) makeRequestWithContext(ctx context.Context, requestID, endpoint string, params url.Values) ([]byte, error) {
	startTime := time.Now()

	// logged form never carries the key
	logged := endpoint
	if len(params) > 0 {
		logged += "?" + params.Encode()
	}

	query := url.Values{}
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}
	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "channel-tracker/1.0")

	logging.LogRequest(requestID, http.MethodGet, logged)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(), zap.String("endpoint", logged), zap.Error(redactKey(err, c.apiKey)))
		return nil, fmt.Errorf("failed to perform request: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	duration := time.Since(startTime).Milliseconds()
	if err != nil {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", logged), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", logged), zap.String("error", "API error response received"))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", logged), zap.String("status", "success"))
	logging.LogJSON(respBody, "YouTube API response "+endpoint)
	return respBody, nil
}

// redactKey strips the API key from transport errors, which embed the request URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
