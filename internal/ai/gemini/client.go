// Package gemini implements the generation and embedding capabilities
// over the Google GenAI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/evalerr"
	"github.com/devprep/feedback-engine/internal/logger"
	"github.com/devprep/feedback-engine/internal/utils"
)

const (
	providerName      = "gemini"
	defaultModel      = "gemini-2.0-flash"
	defaultEmbedModel = "text-embedding-004"
	defaultMaxRetries = 3
	defaultTimeout    = 60 * time.Second

	// maxRetryDelay caps how long a quota hint may ask us to wait before
	// we give up instead of retrying.
	maxRetryDelay = 30 * time.Second
)

// wait is swapped out in tests to avoid real backoff sleeps.
var wait = utils.WaitFor

// modelCaller is the slice of the genai Models API the client uses,
// kept small so tests can stand in for the real API.
type modelCaller interface {
	generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	embed(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type apiCaller struct {
	client *genai.Client
}

func (c *apiCaller) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, contents, config)
}

func (c *apiCaller) embed(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return c.client.Models.EmbedContent(ctx, model, contents, config)
}

// Config holds the Gemini connection settings.
type Config struct {
	APIKey     string
	Model      string
	EmbedModel string
	MaxRetries int
	Timeout    time.Duration
}

// Client talks to the Gemini API. It implements both ai.Generator and
// ai.Embedder so one connection serves generation and embedding.
type Client struct {
	models     modelCaller
	model      string
	embedModel string
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

var (
	_ ai.Generator = (*Client)(nil)
	_ ai.Embedder  = (*Client)(nil)
)

// New creates a client for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	embedModel := strings.TrimSpace(cfg.EmbedModel)
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		models:     &apiCaller{client: client},
		model:      model,
		embedModel: embedModel,
		maxRetries: maxRetries,
		timeout:    timeout,
		logger:     logger.WithCommonFields(log, providerName, model),
	}, nil
}

func (c *Client) Name() string {
	return providerName
}

// GenerateStructured sends the prompt, retries transient API failures,
// and decodes the JSON response into out.
func (c *Client) GenerateStructured(ctx context.Context, req *ai.GenerateRequest, out any) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.New("prompt must not be empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature:      ptr(req.Temperature),
		ResponseMIMEType: "application/json",
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	raw, err := c.generateWithRetries(ctx, req.Prompt, config)
	if err != nil {
		return err
	}

	return ai.DecodeStructured(raw, req.Schema, out)
}

func (c *Client) generateWithRetries(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.models.generate(ctx, c.model, genai.Text(prompt), config)
		if err == nil {
			text := collectText(resp)
			if text == "" {
				return "", evalerr.Newf(evalerr.KindParseFailed, "gemini returned an empty response")
			}

			return text, nil
		}

		lastErr = err

		retryable, delay := classifyAPIError(err)
		if !retryable || attempt == c.maxRetries {
			break
		}
		if delay > maxRetryDelay {
			c.logger.Warn("giving up on retries, quota hint too long",
				zap.Duration("hinted_delay", delay))
			break
		}
		if delay <= 0 {
			delay = time.Second << (attempt - 1)
		}

		c.logger.Debug("retrying gemini call",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	return "", classifyFinal(lastErr)
}

// classifyAPIError decides whether the error is worth retrying and, for
// quota errors, how long the API asked us to wait.
func classifyAPIError(err error) (retryable bool, delay time.Duration) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false, 0
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		return true, parseRetryDelay(apiErr.Message)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, 0
	default:
		return false, 0
	}
}

var retryDelayRe = regexp.MustCompile(`(?i)retry (?:in|after) ([0-9.]+)\s*s`)

func parseRetryDelay(message string) time.Duration {
	match := retryDelayRe.FindStringSubmatch(message)
	if len(match) != 2 {
		return 0
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// classifyFinal maps the terminal transport error to a failure kind.
// Errors outside the known classes pass through unclassified.
func classifyFinal(err error) error {
	if err == nil {
		return errors.New("gemini call failed without a cause")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return evalerr.New(evalerr.KindTimeout, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusRequestTimeout:
			return evalerr.New(evalerr.KindTimeout, err)
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return evalerr.New(evalerr.KindUnavailable, err)
		}
	}

	return fmt.Errorf("generate content: %w", err)
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// Encode embeds the texts in one batched call, preserving input order.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		})
	}

	resp, err := c.models.embed(ctx, c.embedModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}

		return nil, fmt.Errorf("embed content: expected %d embeddings, got %d", len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("embed content: empty embedding at index %d", i)
		}
		vectors[i] = embedding.Values
	}

	return vectors, nil
}

func ptr[T any](v T) *T {
	return &v
}
