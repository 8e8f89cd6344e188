package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider represents the LLM provider type
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
)

// Factory creates LLM instances based on provider
type Factory struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// NewFactory creates a new LLM factory
func NewFactory() *Factory {
	return &Factory{Getenv: os.Getenv}
}

// GetAvailableProviders returns a list of available LLM providers
func (f *Factory) GetAvailableProviders() []Provider {
	return []Provider{ProviderGemini, ProviderClaude, ProviderOpenAI}
}

// CreateLLM creates an LLM instance based on provider and configuration
func (f *Factory) CreateLLM(ctx context.Context, provider Provider, config map[string]string) (LLM, error) {
	apiKey := config["api_key"]
	model := config["model"]

	switch provider {
	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGemini(ctx, apiKey, model)

	case ProviderClaude:
		if apiKey == "" {
			return nil, fmt.Errorf("Claude API key is required")
		}
		if model != "" {
			return NewClaudeWithModel(apiKey, model), nil
		}
		return NewClaude(apiKey), nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		if model != "" {
			return NewOpenAIWithModel(apiKey, model), nil
		}
		return NewOpenAI(apiKey), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: gemini, claude, openai)", provider)
	}
}

// CreateFromEnv creates an LLM instance from environment variables. An
// explicit provider wins over LLM_PROVIDER; with neither set, the first
// provider with an API key in the environment is used.
func (f *Factory) CreateFromEnv(ctx context.Context, providerOverride, modelOverride string) (LLM, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(providerOverride)))
	if provider == "" {
		provider = Provider(strings.ToLower(strings.TrimSpace(f.getenv("LLM_PROVIDER"))))
	}
	if provider == "" {
		provider = f.detect()
	}
	if provider == "" {
		return nil, fmt.Errorf("no LLM API key found (set GEMINI_API_KEY, ANTHROPIC_API_KEY or OPENAI_API_KEY)")
	}

	keyVar, modelVar := envVars(provider)
	if keyVar == "" {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER: %s (supported: gemini, claude, openai)", provider)
	}
	apiKey := f.apiKey(provider)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", keyVar)
	}

	model := modelOverride
	if model == "" {
		model = f.getenv(modelVar)
	}
	return f.CreateLLM(ctx, provider, map[string]string{"api_key": apiKey, "model": model})
}

func (f *Factory) detect() Provider {
	for _, p := range f.GetAvailableProviders() {
		if f.apiKey(p) != "" {
			return p
		}
	}
	return ""
}

func (f *Factory) apiKey(p Provider) string {
	keyVar, _ := envVars(p)
	if keyVar == "" {
		return ""
	}
	key := f.getenv(keyVar)
	if key == "" && p == ProviderGemini {
		key = f.getenv("GOOGLE_API_KEY")
	}
	return key
}

func (f *Factory) getenv(key string) string {
	if f.Getenv == nil {
		return os.Getenv(key)
	}
	return f.Getenv(key)
}

func envVars(p Provider) (apiKey, model string) {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY", "GEMINI_MODEL"
	case ProviderClaude:
		return "ANTHROPIC_API_KEY", "CLAUDE_MODEL"
	case ProviderOpenAI:
		return "OPENAI_API_KEY", "OPENAI_MODEL"
	}
	return "", ""
}

// CreateFromEnv is a convenience wrapper around NewFactory().CreateFromEnv.
func CreateFromEnv(ctx context.Context, providerOverride, modelOverride string) (LLM, error) {
	return NewFactory().CreateFromEnv(ctx, providerOverride, modelOverride)
}
