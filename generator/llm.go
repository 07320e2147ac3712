package generator

import (
	"context"
	"errors"
	"fmt"
)

// LLMClient is the text-in, text-out boundary to the generation collaborator.
// Implementations return errors wrapping ErrGenerationUnavailable or ErrGenerationRejected.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

const (
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// LLMSettings configures a concrete client.
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature *float64
}

// NewClient picks the implementation for settings.Provider.
func NewClient(settings LLMSettings) (LLMClient, error) {
	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAILLMFromConfig(&settings)
	case ProviderDeepSeek:
		// DeepSeek speaks the OpenAI protocol but only at its own endpoint.
		if settings.BaseURL == "" {
			return nil, errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return NewOpenAILLMFromConfig(&settings)
	case ProviderAnthropic:
		return NewAnthropicLLMFromConfig(&settings)
	case ProviderMock:
		return MockLLM{}, nil
	case "":
		return nil, errors.New("llm provider is required")
	default:
		return nil, fmt.Errorf("llm provider %s not supported", settings.Provider)
	}
}
