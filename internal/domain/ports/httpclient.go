package ports

import (
	"fmt"
	"net/http"
	"time"
)

// HTTPClient abstracts outbound HTTP calls for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClientConfig holds configuration for HTTP client
type HTTPClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
}

// RealHTTPClient implements HTTPClient on top of net/http, retrying
// transport failures with a linear backoff
type RealHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

// NewRealHTTPClient creates a new real HTTP client implementation
func NewRealHTTPClient(config HTTPClientConfig) *RealHTTPClient {
	return &RealHTTPClient{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Do executes an HTTP request. Only transport errors are retried; any
// response, whatever its status, is returned to the caller.
func (c *RealHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := rewindBody(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(c.config.RetryDelay * time.Duration(attempt+1)):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func rewindBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}
	req.Body = body
	return nil
}
