// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package recording contains the HTTP client for the recording pipeline,
// used to stop in-progress recordings when the last host leaves.
package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

const (
	// DefaultClientTimeout is the default HTTP client timeout for recording pipeline requests
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Config holds the configuration for the recording pipeline client
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// Optional: override auth URL for testing
	AuthURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Client talks to the recording pipeline's REST API using OAuth2 client
// credentials.
type Client struct {
	httpClient  *http.Client
	config      Config
	oauthConfig *clientcredentials.Config
}

// Ensure that Client implements RecordingControl
var _ domain.RecordingControl = (*Client)(nil)

// NewClient creates a new recording pipeline client
func NewClient(config Config) *Client {
	if config.AuthURL == "" {
		config.AuthURL = config.BaseURL + "/oauth/token"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	oauthConfig := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.AuthURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config:      config,
		oauthConfig: oauthConfig,
	}
}

// getAuthenticatedClient returns an HTTP client that handles OAuth2 authentication
func (c *Client) getAuthenticatedClient(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout: c.config.Timeout,
		Transport: &oauth2.Transport{
			Base:   http.DefaultTransport,
			Source: c.oauthConfig.TokenSource(ctx),
		},
	}
}

// shouldRetry determines if an HTTP status code or transport error should be retried
func shouldRetry(statusCode int, err error) bool {
	// Retry on network/connection errors
	if err != nil {
		return true
	}

	// Retry on server errors (5xx) and rate limiting (429)
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	return false
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// Jitter of up to ±25% to avoid synchronized retries
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoffWithJitter := time.Duration(backoff + jitter)
	if backoffWithJitter < c.config.InitialBackoff {
		backoffWithJitter = c.config.InitialBackoff
	}

	return backoffWithJitter
}

// doRequest performs an authenticated request with retry on transient failures.
// The returned response body has already been read, closed, and restored.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	url := c.config.BaseURL + path
	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		startTime := time.Now()
		resp, err := c.getAuthenticatedClient(ctx).Do(req)
		duration := time.Since(startTime)

		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}

		if err == nil && !shouldRetry(statusCode, nil) {
			slog.DebugContext(ctx, "recording pipeline request completed",
				"method", method,
				"path", path,
				"status", statusCode,
				"duration", duration.String(),
				"attempt", attempt+1,
			)
			return c.bufferResponse(resp), nil
		}

		if lastResp != nil {
			_ = lastResp.Body.Close()
		}
		lastErr, lastResp = err, resp

		if !shouldRetry(statusCode, err) {
			break
		}
		if attempt >= c.config.MaxRetries {
			slog.ErrorContext(ctx, "recording pipeline request failed after all retries",
				"method", method,
				"path", path,
				"status", statusCode,
				"attempts", attempt+1,
				logging.ErrKey, err,
				logging.PriorityCritical())
			break
		}

		backoff := c.calculateBackoff(attempt)
		slog.WarnContext(ctx, "recording pipeline request failed, retrying",
			"method", method,
			"path", path,
			"status", statusCode,
			"duration", duration.String(),
			"attempt", attempt+1,
			"backoff", backoff.String(),
			logging.ErrKey, err)

		select {
		case <-ctx.Done():
			if lastResp != nil {
				_ = lastResp.Body.Close()
			}
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if lastErr != nil {
		if lastResp != nil {
			_ = lastResp.Body.Close()
		}
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
	}

	return c.bufferResponse(lastResp), nil
}

// bufferResponse reads and restores the response body so callers can decode
// it without worrying about the connection.
func (c *Client) bufferResponse(resp *http.Response) *http.Response {
	if resp == nil {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp
}

type stopRecordingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StopRecording asks the recording pipeline to stop any in-progress recording
// of the meeting. Stopping a meeting with no active recording is not an
// error; the pipeline reports it as no_active_recording.
func (c *Client) StopRecording(ctx context.Context, meetingUID string) (*models.StopRecordingResult, error) {
	path := fmt.Sprintf("/v1/meetings/%s/recording/stop", meetingUID)

	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, domain.NewCollaboratorError(
			fmt.Sprintf("failed to stop recording for meeting '%s'", meetingUID), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		// The pipeline has no recording session for this meeting at all.
		return &models.StopRecordingResult{
			Status:  models.StopRecordingNoActiveRecording,
			Message: "no recording session found",
		}, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.NewCollaboratorError(
			fmt.Sprintf("recording pipeline returned status %d: %s", resp.StatusCode, string(body)))
	}

	var response stopRecordingResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, domain.NewCollaboratorError("malformed stop recording response", err)
	}

	status, err := models.ParseStopRecordingStatus(response.Status)
	if err != nil {
		return nil, domain.NewCollaboratorError("unexpected stop recording status", err)
	}

	return &models.StopRecordingResult{
		Status:  status,
		Message: response.Message,
	}, nil
}
