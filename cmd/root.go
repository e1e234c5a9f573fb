package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "feedback-engine"
)

type Config struct {
	LLM       *LLMConfig       `mapstructure:"llm"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
	BadCase   *BadCaseConfig   `mapstructure:"badcase"`
	Keyword   *KeywordConfig   `mapstructure:"keyword"`
}

type LLMConfig struct {
	Provider  string           `mapstructure:"provider"`
	Gemini    *GeminiConfig    `mapstructure:"gemini"`
	VLLM      *VLLMConfig      `mapstructure:"vllm"`
	Anthropic *AnthropicConfig `mapstructure:"anthropic"`
}

// API keys are excluded from JSON so config dumps never leak them.
type GeminiConfig struct {
	APIKey     string        `mapstructure:"api-key" json:"-"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Model      string        `mapstructure:"model"`
	MaxRetries int           `mapstructure:"max-retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type VLLMConfig struct {
	BaseURL string        `mapstructure:"base-url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api-key" json:"-"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AnthropicConfig struct {
	APIKey     string        `mapstructure:"api-key" json:"-"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	Provider string             `mapstructure:"provider"`
	Gemini   *EmbedGeminiConfig `mapstructure:"gemini"`
	TEI      *TEIConfig         `mapstructure:"tei"`
}

type EmbedGeminiConfig struct {
	Model string `mapstructure:"model"`
}

type TEIConfig struct {
	BaseURL string        `mapstructure:"base-url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BadCaseConfig struct {
	MinMeaningfulTokens int     `mapstructure:"min-meaningful-tokens"`
	SimilarityThreshold float64 `mapstructure:"similarity-threshold"`
}

type KeywordConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity-threshold"`
	Window              int     `mapstructure:"window"`
	Stride              int     `mapstructure:"stride"`
	MinChunk            int     `mapstructure:"min-chunk"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "feedback-engine evaluates interview answers and generates structured feedback",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("llm.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	if err := viper.BindEnv("llm.anthropic.api-key", "ANTHROPIC_API_KEY"); err != nil {
		log.Fatalf("binding ANTHROPIC_API_KEY environment variable: %v", err)
	}

	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.vllm.base-url", "http://localhost:8000")
	viper.SetDefault("embedding.provider", "gemini")
	viper.SetDefault("embedding.tei.base-url", "http://localhost:8080")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is feedback-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the evaluate command. If it was not called, we can skip initialization
	if evaluateCmd.CalledAs() == "" {
		return
	}

	// Secrets may live in a local .env instead of the config file.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine since every key has a usable
	// default, but a config we cannot parse is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
