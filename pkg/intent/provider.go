package intent

import (
	"context"
	"fmt"
)

// Provider is an interface for LLM completion backends.
type Provider interface {
	// Complete sends a prompt and returns the raw model text.
	Complete(ctx context.Context, request CompletionRequest) (string, error)

	// Provider returns the provider name.
	Provider() string
}

// CompletionRequest contains the parameters for a completion call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
}

// AuthProfile represents credentials for an LLM provider.
type AuthProfile struct {
	ID       string `json:"id"`
	Provider string `json:"provider"` // "anthropic", "openai"
	APIKey   string `json:"api_key"`
	Model    string `json:"model,omitempty"`
}

// ProviderFactory creates LLM providers.
type ProviderFactory struct{}

// NewProvider creates a provider from an auth profile.
func (f *ProviderFactory) NewProvider(profile AuthProfile) (Provider, error) {
	switch profile.Provider {
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}
