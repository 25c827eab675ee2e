// File: internal/model/client.go
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/internal/config"
)

const (
	defaultBaseURL  = "https://api.anthropic.com/v1"
	messagesPath    = "/messages"
	apiVersion      = "2023-06-01"
	headerAPIKey    = "x-api-key"
	headerVersion   = "anthropic-version"
	headerBeta      = "anthropic-beta"
	contentTypeJSON = "application/json"

	// BetaComputerUse enables the native computer tool revision this client
	// speaks.
	BetaComputerUse = "computer-use-2025-01-24"
)

// APIError is a non-2xx answer from the model service, carried to the caller
// unmodified. There is deliberately no retry or backoff in this client:
// upstream reliability is part of what an experimental run measures, and
// masking overloads with silent retries would falsify it.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("model service error (HTTP %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("model service error (HTTP %d): %s", e.StatusCode, e.Body)
}

// errorEnvelope is the error body shape of the Messages API.
type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Anthropic Messages API.
type Client struct {
	model      string
	apiKey     string
	baseURL    string
	maxTokens  int
	betas      []string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Messages API client for the configured model. The betas
// list is sent on every call via the anthropic-beta header.
func NewClient(cfg config.ModelConfig, apiKey string, betas []string, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		model:      cfg.Name,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxTokens:  cfg.MaxTokens,
		betas:      betas,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("model_client"),
	}
}

// CreateMessage sends one Messages API call and decodes the response.
// Transport failures and non-2xx statuses are returned as-is, once.
func (c *Client) CreateMessage(ctx context.Context, system string, messages []Message, tools []Tool) (*Response, error) {
	payload := Request{
		Model:     c.model,
		System:    system,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: c.maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpoint := c.baseURL + messagesPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set(headerAPIKey, c.apiKey)
	httpReq.Header.Set(headerVersion, apiVersion)
	if len(c.betas) > 0 {
		httpReq.Header.Set(headerBeta, strings.Join(c.betas, ","))
	}

	c.logger.Debug("Calling model service",
		zap.String("model", c.model),
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(tools)),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var envelope errorEnvelope
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}

	var parsed Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode model service response: %w", err)
	}

	c.logger.Debug("Model service call completed",
		zap.Duration("duration", time.Since(start)),
		zap.String("stop_reason", parsed.StopReason),
		zap.Int("input_tokens", parsed.Usage.InputTokens),
		zap.Int("output_tokens", parsed.Usage.OutputTokens),
	)
	return &parsed, nil
}
