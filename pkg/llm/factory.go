package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/config"
)

// NewFromConfig creates a TextGenerator for the configured provider.
// Returns (nil, nil) when no provider is configured: the caller treats a
// nil generator as "generative path unavailable" and degrades.
func NewFromConfig(cfg *config.AIConfig, logger *zap.Logger) (TextGenerator, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	clientCfg := &Config{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	var (
		generator TextGenerator
		err       error
	)
	switch cfg.Provider {
	case "openai":
		generator, err = NewOpenAIClient(clientCfg, logger)
	case "anthropic":
		generator, err = NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithTimeout(generator, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
}
