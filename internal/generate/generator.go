// Package generate produces answer text from assembled prompts using
// pluggable backends: a llama.cpp completion server, the Gemini API, or a
// deterministic static provider for offline use. Provider selection follows
// environment configuration, see NewFromEnv.
package generate

import (
	"context"
	"errors"
	"strings"
)

// Provider names
const (
	ProviderLlama  = "llama"
	ProviderGemini = "gemini"
	ProviderStatic = "static"
)

// Default generation parameters
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// Common errors
var (
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
	ErrProviderFailed      = errors.New("generation provider failed")
	ErrEmptyCompletion     = errors.New("empty completion")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrNoProviderEnabled   = errors.New("no generation provider configured")
)

// DefaultStop returns the stop sequences that keep an instruct model from
// running past its answer into a fabricated follow-up turn.
func DefaultStop() []string {
	return []string{"</s>", "[INST]", "<|endoftext|>", "\n\nUser Question:", "\n\nFile:"}
}

// GenerateRequest carries one prompt to a provider. System and Prompt are
// kept separate so chat-style APIs can map them onto their own roles; the
// llama provider folds them into a single instruct-formatted string.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float64  // <= 0 means DefaultTemperature
	TopP        float64  // <= 0 means DefaultTopP
	MaxTokens   int      // <= 0 means DefaultMaxTokens
	Stop        []string // nil means DefaultStop()
}

// GenerateResult is the provider's answer
type GenerateResult struct {
	Text       string
	TokensUsed int // 0 when the provider does not report usage
}

// Generator interface defines methods for producing completions
type Generator interface {
	// Generate produces answer text for the given prompt
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// Model returns the model name reported in responses
	Model() string

	// Close releases any resources held by the generator
	Close() error
}

// ValidateRequest validates a generation request
func ValidateRequest(req GenerateRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// withDefaults fills unset generation knobs with package defaults
func (r GenerateRequest) withDefaults() GenerateRequest {
	if r.Temperature <= 0 {
		r.Temperature = DefaultTemperature
	}
	if r.TopP <= 0 {
		r.TopP = DefaultTopP
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if len(r.Stop) == 0 {
		r.Stop = DefaultStop()
	}
	return r
}
