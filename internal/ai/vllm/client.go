// Package vllm implements the generation capability against an
// OpenAI-compatible chat completions endpoint (vLLM, LM Studio,
// llama.cpp server and friends).
package vllm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/evalerr"
	"github.com/devprep/feedback-engine/internal/logger"
)

const (
	providerName   = "vllm"
	defaultTimeout = 60 * time.Second
)

// Config holds the endpoint settings.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client implements ai.Generator over the chat completions API.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

var _ ai.Generator = (*Client)(nil)

// New creates a client for the configured endpoint.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("vllm base url is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("vllm model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithCommonFields(log, providerName, model),
	}, nil
}

func (c *Client) Name() string {
	return providerName
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int32           `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateStructured posts the prompt with a JSON-schema response format
// and decodes the answer into out.
func (c *Client) GenerateStructured(ctx context.Context, req *ai.GenerateRequest, out any) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.New("prompt must not be empty")
	}

	payload := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if strings.TrimSpace(req.System) != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if len(req.Schema) > 0 {
		payload.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: "response", Schema: req.Schema},
		}
	}

	raw, err := c.call(ctx, payload)
	if err != nil {
		return err
	}

	return ai.DecodeStructured(raw, req.Schema, out)
}

func (c *Client) call(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("chat completions request",
		zap.String("url", url),
		zap.Int("body_bytes", len(body)),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", ai.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusRequestTimeout:
		return "", evalerr.Newf(evalerr.KindTimeout, "chat completions: %s", resp.Status)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", evalerr.Newf(evalerr.KindUnavailable, "chat completions: %s", resp.Status)
	default:
		return "", fmt.Errorf("chat completions: bad status %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", evalerr.New(evalerr.KindParseFailed, fmt.Errorf("decode chat response: %w", err))
	}
	if len(decoded.Choices) == 0 {
		return "", evalerr.Newf(evalerr.KindParseFailed, "chat response has no choices")
	}

	content := decoded.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", evalerr.Newf(evalerr.KindParseFailed, "chat response content is empty")
	}

	return content, nil
}
