package generate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvLlamaServerURL, "")
	t.Setenv(EnvGeminiAPIKey, "")
	t.Setenv(EnvGeminiModel, "")
}

func TestStaticProvider(t *testing.T) {
	t.Run("default response", func(t *testing.T) {
		provider := NewStaticProvider("")
		defer provider.Close()

		result, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "anything"})
		require.NoError(t, err)
		assert.Equal(t, DefaultStaticResponse, result.Text)
		assert.Equal(t, ProviderStatic, provider.Model())
	})

	t.Run("canned response and word count usage", func(t *testing.T) {
		provider := NewStaticProvider("four words exactly here")
		defer provider.Close()

		result, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "q"})
		require.NoError(t, err)
		assert.Equal(t, "four words exactly here", result.Text)
		assert.Equal(t, 4, result.TokensUsed)
	})

	t.Run("rejects blank prompt", func(t *testing.T) {
		provider := NewStaticProvider("x")
		defer provider.Close()

		_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: ""})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})
}

func TestNewFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to static with nothing configured", func(t *testing.T) {
		clearProviderEnv(t)

		gen, err := NewFromEnv(ctx)
		require.NoError(t, err)
		defer gen.Close()
		assert.IsType(t, &StaticProvider{}, gen)
	})

	t.Run("auto behaves like unset", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvProvider, "auto")

		gen, err := NewFromEnv(ctx)
		require.NoError(t, err)
		defer gen.Close()
		assert.IsType(t, &StaticProvider{}, gen)
	})

	t.Run("llama server url selects llama", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvLlamaServerURL, "http://localhost:8080")

		gen, err := NewFromEnv(ctx)
		require.NoError(t, err)
		defer gen.Close()
		assert.IsType(t, &LlamaProvider{}, gen)
		assert.Equal(t, DefaultLlamaModel, gen.Model())
	})

	t.Run("explicit provider wins over detection", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvProvider, "static")
		t.Setenv(EnvLlamaServerURL, "http://localhost:8080")

		gen, err := NewFromEnv(ctx)
		require.NoError(t, err)
		defer gen.Close()
		assert.IsType(t, &StaticProvider{}, gen)
	})

	t.Run("explicit llama without url fails", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvProvider, "llama")

		_, err := NewFromEnv(ctx)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvProvider, "gpt9")

		_, err := NewFromEnv(ctx)
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})
}

func TestNew(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(context.Background(), Config{Provider: "quantum"})
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})

	t.Run("static ignores remaining config", func(t *testing.T) {
		gen, err := New(context.Background(), Config{Provider: "STATIC"})
		require.NoError(t, err)
		defer gen.Close()
		assert.Equal(t, ProviderStatic, gen.Model())
	})
}

func TestDetectProvider(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvProvider, "Gemini")
		assert.Equal(t, ProviderGemini, DetectProvider())
	})

	t.Run("llama url", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvLlamaServerURL, "http://localhost:8080")
		assert.Equal(t, ProviderLlama, DetectProvider())
	})

	t.Run("gemini key", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv(EnvGeminiAPIKey, "test-key")
		assert.Equal(t, ProviderGemini, DetectProvider())
	})

	t.Run("static fallback", func(t *testing.T) {
		clearProviderEnv(t)
		assert.Equal(t, ProviderStatic, DetectProvider())
	})
}
