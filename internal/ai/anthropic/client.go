// Package anthropic implements the generation capability over the
// Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/evalerr"
	"github.com/devprep/feedback-engine/internal/logger"
)

const (
	providerName     = "anthropic"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
	defaultTimeout   = 60 * time.Second
)

// Config holds the Anthropic connection settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// messageCaller is the slice of the SDK the client needs; tests stand
// in for it.
type messageCaller interface {
	create(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

type sdkCaller struct {
	client *anthropic.Client
}

func (c *sdkCaller) create(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params)
}

// Client implements ai.Generator over the messages API.
type Client struct {
	messages messageCaller
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

var _ ai.Generator = (*Client)(nil)

// New creates a client for the Anthropic API.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	sdk := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Client{
		messages: &sdkCaller{client: &sdk},
		model:    model,
		timeout:  timeout,
		logger:   logger.WithCommonFields(log, providerName, model),
	}, nil
}

func (c *Client) Name() string {
	return providerName
}

// GenerateStructured sends the prompt and decodes the first text block
// of the reply into out.
func (c *Client) GenerateStructured(ctx context.Context, req *ai.GenerateRequest, out any) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.New("prompt must not be empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: param.NewOpt(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	c.logger.Debug("messages request",
		zap.Int64("max_tokens", maxTokens),
		zap.Float32("temperature", req.Temperature),
	)

	message, err := c.messages.create(ctx, params)
	if err != nil {
		return classify(err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return evalerr.Newf(evalerr.KindParseFailed, "no text content in anthropic response")
	}

	return ai.DecodeStructured(text, req.Schema, out)
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return evalerr.New(evalerr.KindTimeout, err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout:
			return evalerr.New(evalerr.KindTimeout, err)
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return evalerr.New(evalerr.KindUnavailable, err)
		}
	}

	return fmt.Errorf("anthropic message call: %w", err)
}
