// Package tei implements the embedding capability against a
// text-embeddings-inference server.
package tei

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
	providerName   = "tei"
	defaultTimeout = 30 * time.Second
)

// Config holds the endpoint settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements ai.Embedder over the /embed endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

var _ ai.Embedder = (*Client)(nil)

// New creates a client for the configured server.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tei base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithCommonFields(log, providerName, ""),
	}, nil
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// Encode embeds all texts in one request and returns the vectors in
// input order.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	url := c.baseURL + "/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("embed request",
		zap.String("url", url),
		zap.Int("inputs", len(texts)),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ai.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, evalerr.Newf(evalerr.KindUnavailable, "embed: %s", resp.Status)
	default:
		return nil, fmt.Errorf("embed: bad status %s", resp.Status)
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed returned %d vectors for %d inputs", len(vectors), len(texts))
	}

	return vectors, nil
}
