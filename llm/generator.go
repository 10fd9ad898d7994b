package llm

import (
	"context"
	"fmt"

	"newsdigest/config"
)

// Generator produces text from a single prompt
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
	Model() string
}

// New builds a generator for model using the configured LLM provider
func New(ctx context.Context, cfg *config.Config, model string) (Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini, "":
		return NewGemini(ctx, cfg.GoogleAPIKey, model)
	case config.ProviderOpenAI:
		return NewOpenAI(ctx, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
