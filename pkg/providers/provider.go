package providers

import (
	"fmt"

	"github.com/orbitarium/missionguide/pkg/config"
)

// CreateProvider is the single entry point for constructing an LLMProvider
// from configuration.
func CreateProvider(cfg *config.Config) (LLMProvider, error) {
	llm := cfg.LLM
	switch llm.Provider {
	case "", "openai":
		return NewOpenAIProvider(llm.APIKey, llm.BaseURL, llm.Model), nil
	case "anthropic":
		return NewAnthropicProvider(llm.APIKey, llm.BaseURL, llm.Model), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", llm.Provider)
}
