// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"property-estimator/internal/common/logger"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// Client is a JSON client bound to a single base endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        logger.Logger
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
	Duration   time.Duration
}

// ResponseError is returned for any non-2xx status. The response body is kept
// so callers can extract the service's own error message.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// GetJSON issues GET {baseURL}{path}.
func (c *Client) GetJSON(ctx context.Context, path string) (*Response, error) {
	return c.send(ctx, http.MethodGet, path, nil)
}

// PostJSON issues POST {baseURL}{path} with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, body interface{}) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.send(ctx, http.MethodPost, path, payload)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	url := c.baseURL + path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("API request", map[string]interface{}{
		"method":    method,
		"url":       url,
		"requestId": requestID,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("API request failed", map[string]interface{}{
			"method":    method,
			"url":       url,
			"requestId": requestID,
			"error":     err,
		})
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		RequestID:  requestID,
		Duration:   time.Since(start),
	}

	c.log.Debug("API response", map[string]interface{}{
		"method":     method,
		"url":        url,
		"requestId":  requestID,
		"status":     resp.StatusCode,
		"durationMs": out.Duration.Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &ResponseError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}
	return out, nil
}

// IsTimeout reports whether err came from a client or context deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
