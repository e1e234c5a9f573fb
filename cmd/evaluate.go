package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/ai/anthropic"
	"github.com/devprep/feedback-engine/internal/ai/gemini"
	"github.com/devprep/feedback-engine/internal/ai/kotag"
	"github.com/devprep/feedback-engine/internal/ai/tei"
	"github.com/devprep/feedback-engine/internal/ai/vllm"
	"github.com/devprep/feedback-engine/internal/badcase"
	"github.com/devprep/feedback-engine/internal/feedback"
	"github.com/devprep/feedback-engine/internal/interview"
	"github.com/devprep/feedback-engine/internal/keyword"
	"github.com/devprep/feedback-engine/internal/logger"
	"github.com/devprep/feedback-engine/internal/pipeline"
	"github.com/devprep/feedback-engine/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var modePrompt = promptui.Select{
	Label: "Evaluation mode",
	Items: []string{string(interview.ModePractice), string(interview.ModeReal)},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate an interview answer and print the structured result",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("request", "r", "", "path to an evaluation request JSON file")
	evaluateCmd.Flags().StringP("output", "o", "", "write the result JSON to this file instead of stdout")
	evaluateCmd.Flags().BoolP("interactive", "i", false, "compose a single-turn request interactively")
}

// evaluate is the main command for the cli.
func evaluate(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		config = &Config{}
	}

	logger.Info("starting the feedback-engine", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	request, err := loadRequest(cmd)
	if err != nil {
		logger.Fatal("loading the evaluation request", zap.Error(err))
	}

	generator, err := newGenerator(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the llm provider", zap.Error(err))
	}

	embedder, err := newEmbedder(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the embedding provider", zap.Error(err))
	}

	service := newService(config, generator, embedder, logger)

	result, err := service.Evaluate(ctx, request)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	if err := writeResult(cmd, result, logger); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}
}

// newService wires the pre-filter and the three evaluation stages onto
// the shared providers.
func newService(config *Config, generator ai.Generator, embedder ai.Embedder, logger *zap.Logger) *feedback.Service {
	checker := badcase.New(kotag.New(), embedder, badcaseConfig(config), logger)
	scorer := keyword.New(embedder, keywordConfig(config), logger)

	runner := pipeline.NewRunner(logger,
		pipeline.NewKeywordStage(scorer),
		pipeline.NewRubricStage(generator),
		pipeline.NewFeedbackStage(generator),
	)

	return feedback.NewService(checker, runner, logger)
}

func newGenerator(ctx context.Context, config *Config, logger *zap.Logger) (ai.Generator, error) {
	llm := config.LLM
	if llm == nil {
		llm = &LLMConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(llm.Provider))

	switch provider {
	case "", "gemini":
		cfg := llm.Gemini
		if cfg == nil {
			cfg = &GeminiConfig{}
		}

		apiKey, err := geminiAPIKey(cfg)
		if err != nil {
			return nil, err
		}

		return gemini.New(ctx, gemini.Config{
			APIKey:     apiKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
		}, logger)
	case "vllm":
		cfg := llm.VLLM
		if cfg == nil {
			cfg = &VLLMConfig{}
		}

		return vllm.New(vllm.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}, logger)
	case "anthropic":
		cfg := llm.Anthropic
		if cfg == nil {
			cfg = &AnthropicConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "anthropic api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   "ANTHROPIC_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.anthropic.api-key or ANTHROPIC_API_KEY)", err)
		}

		return anthropic.New(anthropic.Config{
			APIKey:  apiKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llm.Provider)
	}
}

func newEmbedder(ctx context.Context, config *Config, logger *zap.Logger) (ai.Embedder, error) {
	emb := config.Embedding
	if emb == nil {
		emb = &EmbeddingConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(emb.Provider))

	switch provider {
	case "", "gemini":
		llmCfg := &GeminiConfig{}
		if config.LLM != nil && config.LLM.Gemini != nil {
			llmCfg = config.LLM.Gemini
		}

		apiKey, err := geminiAPIKey(llmCfg)
		if err != nil {
			return nil, err
		}

		embedModel := ""
		if emb.Gemini != nil {
			embedModel = emb.Gemini.Model
		}

		return gemini.New(ctx, gemini.Config{
			APIKey:     apiKey,
			EmbedModel: embedModel,
			Timeout:    llmCfg.Timeout,
		}, logger)
	case "tei":
		cfg := emb.TEI
		if cfg == nil {
			cfg = &TEIConfig{}
		}

		return tei.New(tei.Config{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", emb.Provider)
	}
}

func geminiAPIKey(cfg *GeminiConfig) (string, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return "", fmt.Errorf("%w (set llm.gemini.api-key or GEMINI_API_KEY)", err)
	}

	return apiKey, nil
}

func badcaseConfig(config *Config) badcase.Config {
	if config.BadCase == nil {
		return badcase.Config{}
	}

	return badcase.Config{
		MinMeaningfulTokens: config.BadCase.MinMeaningfulTokens,
		SimilarityThreshold: config.BadCase.SimilarityThreshold,
	}
}

func keywordConfig(config *Config) keyword.Config {
	if config.Keyword == nil {
		return keyword.Config{}
	}

	return keyword.Config{
		SimilarityThreshold: config.Keyword.SimilarityThreshold,
		WindowRunes:         config.Keyword.Window,
		StrideRunes:         config.Keyword.Stride,
		MinChunkRunes:       config.Keyword.MinChunk,
	}
}

func loadRequest(cmd *cobra.Command) (*feedback.EvaluationRequest, error) {
	if cmd.Flag("interactive").Value.String() == "true" {
		return interactiveRequest()
	}

	path := strings.TrimSpace(cmd.Flag("request").Value.String())
	if path == "" {
		return nil, errors.New("either --request or --interactive is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}

	request := &feedback.EvaluationRequest{}
	if err := json.Unmarshal(data, request); err != nil {
		return nil, fmt.Errorf("parsing request file %q: %w", path, err)
	}

	return request, nil
}

// interactiveRequest builds a single-turn request from prompts. Meant
// for manual checks against a live provider.
func interactiveRequest() (*feedback.EvaluationRequest, error) {
	_, mode, err := modePrompt.Run()
	if err != nil {
		return nil, err
	}

	notEmpty := func(input string) error {
		if strings.TrimSpace(input) == "" {
			return errors.New("value must not be empty")
		}
		return nil
	}

	questionPrompt := promptui.Prompt{Label: "Question", Validate: notEmpty}
	question, err := questionPrompt.Run()
	if err != nil {
		return nil, err
	}

	answerPrompt := promptui.Prompt{Label: "Answer", Validate: notEmpty}
	answer, err := answerPrompt.Run()
	if err != nil {
		return nil, err
	}

	keywordsPrompt := promptui.Prompt{Label: "Keywords (comma separated, optional)"}
	rawKeywords, err := keywordsPrompt.Run()
	if err != nil {
		return nil, err
	}

	keywords := make([]string, 0)
	for _, kw := range strings.Split(rawKeywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return &feedback.EvaluationRequest{
		UserID:     "local",
		QuestionID: "interactive",
		Mode:       interview.Mode(mode),
		History: interview.History{{
			Question: question,
			Answer:   answer,
			Kind:     interview.TurnNewTopic,
			Order:    1,
			TopicID:  1,
		}},
		Keywords: keywords,
	}, nil
}

func writeResult(cmd *cobra.Command, result *feedback.EvaluationResult, logger *zap.Logger) error {
	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	output := strings.TrimSpace(cmd.Flag("output").Value.String())
	if output == "" {
		fmt.Println(string(pretty))
		return nil
	}

	if err := os.WriteFile(output, append(pretty, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing result to %q: %w", output, err)
	}

	logger.Info("result written to file", zap.String("filename", output))

	return nil
}
