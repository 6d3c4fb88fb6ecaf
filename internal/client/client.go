// Package client talks to the completion proxy over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2207231/chatbot/internal/model/catalog"
	"github.com/2207231/chatbot/internal/model/chat"
)

// DefaultTimeout bounds a single request to the proxy.
const DefaultTimeout = 2 * time.Minute

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// ErrInvalidResponse is returned for a 200 reply without a message field.
var ErrInvalidResponse = errors.New("invalid response format")

// APIError is a non-200 reply from the proxy.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	switch {
	case e.Message == "":
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	case e.Details == "":
		return e.Message
	default:
		return e.Message + ": " + e.Details
	}
}

// Client calls the proxy's /api routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client for the proxy at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type completionRequest struct {
	Messages []chat.Turn `json:"messages"`
	Model    string      `json:"model,omitempty"`
}

type completionResponse struct {
	Message *string `json:"message"`
}

// Complete posts the conversation and returns the assistant's text.
func (c *Client) Complete(ctx context.Context, turns []chat.Turn, model string) (string, error) {
	payload, err := json.Marshal(completionRequest{Messages: turns, Model: model})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/chat", payload)
	if err != nil {
		return "", err
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Message == nil {
		return "", ErrInvalidResponse
	}
	return *resp.Message, nil
}

// Models fetches the model catalog.
func (c *Client) Models(ctx context.Context) ([]catalog.Status, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/models", nil)
	if err != nil {
		return nil, err
	}

	var models []catalog.Status
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}
	return models, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			apiErr.Message = errBody.Error
			apiErr.Details = errBody.Details
		}
		return nil, apiErr
	}
	return body, nil
}
