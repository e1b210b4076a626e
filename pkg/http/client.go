package http

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

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// DefaultTimeout bounds a single attempt, including reading the body.
const DefaultTimeout = 30 * time.Second

type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
	Context context.Context
	// MaxTries bounds the number of attempts. Zero means a single attempt.
	MaxTries        uint
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Response is returned for every status code. Deciding whether a status is
// an error is left to the caller.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

var errServerStatus = errors.New("server error")

// NewClientWithLogger creates a new HTTP client with a custom logger
func NewClientWithLogger(logger *zap.Logger) *Client {
	return NewClientWithHTTPClient(nil, logger)
}

// NewClientWithHTTPClient wraps an existing net/http client, e.g. one with a
// custom timeout or round tripper.
func NewClientWithHTTPClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Do(opts RequestOptions) (*Response, error) {
	if opts.MaxTries == 0 {
		opts.MaxTries = 1
	}
	if opts.MaxElapsed == 0 {
		opts.MaxElapsed = 5 * time.Minute
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 100 * time.Millisecond
	}
	if opts.MaxInterval == 0 {
		opts.MaxInterval = 30 * time.Second
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = opts.InitialInterval
	expBackoff.MaxInterval = opts.MaxInterval
	expBackoff.Reset()

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	requestID := uuid.NewString()
	logger := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", opts.Method),
		zap.String("url", redactURL(opts.URL)))

	// A 5xx on the final attempt is still handed back to the caller.
	var last *Response

	operation := func() (*Response, error) {
		req, err := c.buildRequest(ctx, opts)
		if err != nil {
			logger.Error("Failed to build request", zap.Error(err))
			return nil, backoff.Permanent(err)
		}
		req.Header.Set(RequestIDHeader, requestID)

		logger.Debug("Making HTTP request")

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Warn("HTTP request failed", zap.Error(err))
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			logger.Error("Failed to read response body", zap.Error(err))
			return nil, backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
		}

		resp := &Response{
			StatusCode: httpResp.StatusCode,
			Headers:    httpResp.Header,
			Body:       body,
		}
		last = resp

		if httpResp.StatusCode >= 500 {
			logger.Warn("Server error", zap.Int("status_code", httpResp.StatusCode))
			return nil, fmt.Errorf("%w: %d", errServerStatus, httpResp.StatusCode)
		}

		return resp, nil
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(opts.MaxElapsed),
		backoff.WithMaxTries(opts.MaxTries),
	}

	resp, err := backoff.Retry(ctx, operation, retryOpts...)
	if err != nil {
		if errors.Is(err, errServerStatus) && last != nil {
			return last, nil
		}
		logger.Error("HTTP request failed", zap.Error(err))
		return nil, err
	}

	logger.Debug("HTTP request completed", zap.Int("status_code", resp.StatusCode))

	return resp, nil
}

func (c *Client) buildRequest(ctx context.Context, opts RequestOptions) (*http.Request, error) {
	var bodyReader io.Reader
	if opts.Body != nil {
		if bodyBytes, ok := opts.Body.([]byte); ok {
			bodyReader = bytes.NewReader(bodyBytes)
		} else {
			// If Content-Type explicitly requests form encoding, honor it.
			contentType := opts.Headers["Content-Type"]
			if contentType == "" {
				contentType = opts.Headers["content-type"]
			}

			if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
				form, err := formValues(opts.Body)
				if err != nil {
					return nil, err
				}
				bodyReader = strings.NewReader(form.Encode())
			} else {
				bodyJSON, err := json.Marshal(opts.Body)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal request body: %w", err)
				}
				bodyReader = bytes.NewReader(bodyJSON)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if opts.Body != nil && opts.Headers["Content-Type"] == "" && opts.Headers["content-type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func formValues(body interface{}) (url.Values, error) {
	form := url.Values{}

	switch v := body.(type) {
	case url.Values:
		return v, nil
	case map[string]string:
		for k, val := range v {
			form.Set(k, val)
		}
	case map[string]interface{}:
		for k, val := range v {
			if val == nil {
				continue
			}
			form.Set(k, fmt.Sprint(val))
		}
	default:
		// Convert structs (or other JSON-marshalable types) into a map first.
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(bodyJSON, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request body: %w", err)
		}
		for k, val := range m {
			if val == nil {
				continue
			}
			form.Set(k, fmt.Sprint(val))
		}
	}

	return form, nil
}
