package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/proofvote/internal/model"
	"go.uber.org/zap"
)

// NewProvider creates a provider based on configuration
func NewProvider(config Config, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai", "openrouter", "":
		return NewOpenAIProvider(config, logger)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the generation section of the run configuration
func ConfigFromModel(gen model.GenerationConfig, nli model.NLIConfig) Config {
	return Config{
		Provider:   gen.Provider,
		APIKey:     gen.APIKey,
		BaseURL:    gen.BaseURL,
		Timeout:    gen.Timeout,
		MaxTokens:  gen.MaxTokens,
		HTTPProxy:  nli.HTTPProxy,
		HTTPSProxy: nli.HTTPSProxy,
		NoProxy:    nli.NoProxy,
	}
}
