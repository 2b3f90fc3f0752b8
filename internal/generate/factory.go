package generate

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted for provider selection
const (
	EnvProvider       = "REPOQA_GENERATOR"
	EnvLlamaServerURL = "LLAMA_SERVER_URL"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGeminiModel    = "GEMINI_MODEL"
)

// Config holds generator configuration
type Config struct {
	Provider    string
	LlamaURL    string
	GeminiKey   string
	GeminiModel string
}

// New creates a generator with explicit configuration
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderLlama:
		return NewLlamaProvider(cfg.LlamaURL)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiModel)
	case ProviderStatic:
		return NewStaticProvider(""), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// NewFromEnv creates a generator based on environment variables
// Priority:
//  1. REPOQA_GENERATOR (llama, gemini, static; empty or auto defers)
//  2. LLAMA_SERVER_URL set → llama-server
//  3. GEMINI_API_KEY set → Gemini
//  4. Fallback to the static provider
func NewFromEnv(ctx context.Context) (Generator, error) {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	llamaURL := os.Getenv(EnvLlamaServerURL)
	geminiKey := os.Getenv(EnvGeminiAPIKey)

	if provider != "" && provider != "auto" {
		return New(ctx, Config{
			Provider:    provider,
			LlamaURL:    llamaURL,
			GeminiKey:   geminiKey,
			GeminiModel: os.Getenv(EnvGeminiModel),
		})
	}

	// Auto-detect based on available backends
	if llamaURL != "" {
		return NewLlamaProvider(llamaURL)
	}
	if geminiKey != "" {
		return NewGeminiProvider(ctx, geminiKey, os.Getenv(EnvGeminiModel))
	}

	return NewStaticProvider(""), nil
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	if provider != "" && provider != "auto" {
		return provider
	}

	if os.Getenv(EnvLlamaServerURL) != "" {
		return ProviderLlama
	}
	if os.Getenv(EnvGeminiAPIKey) != "" {
		return ProviderGemini
	}

	return ProviderStatic
}
