package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultLlamaModel is the model name reported in responses. The completion
// server does not identify its loaded weights per request.
const DefaultLlamaModel = "codellama-7b"

// Completion calls run a full decode on the server, so the client timeout is
// generous compared to the embedder-style request budget.
const llamaRequestTimeout = 120 * time.Second

// llamaPromptFormat is the llama2 instruct wrapping: system block, user
// content, then a primer that steers the model toward a grounded answer.
const llamaPromptFormat = `<s>[INST] <<SYS>>
%s
<</SYS>>

%s [/INST]

Based on the provided source code, please provide a detailed and accurate answer. Include specific values, file names, and implementation details when available.

Answer:`

// LlamaProvider implements Generator against a llama.cpp completion server
type LlamaProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewLlamaProvider creates a llama-server backed generator
func NewLlamaProvider(baseURL string) (*LlamaProvider, error) {
	if baseURL == "" {
		baseURL = os.Getenv(EnvLlamaServerURL)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvLlamaServerURL)
	}

	return &LlamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: llamaRequestTimeout,
		},
	}, nil
}

type llamaCompletionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop"`
	Stream      bool     `json:"stream"`
	CachePrompt bool     `json:"cache_prompt"`
}

type llamaCompletionResponse struct {
	Content         string `json:"content"`
	Model           string `json:"model"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

func (l *LlamaProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	req = req.withDefaults()

	prompt := fmt.Sprintf(llamaPromptFormat, req.System, req.Prompt)

	resp, err := retryWithBackoff(ctx, MaxRetries, func() (*llamaCompletionResponse, error) {
		return l.callCompletion(ctx, prompt, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}

	text := cleanCompletion(resp.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: no usable text after cleanup", ErrEmptyCompletion)
	}

	return &GenerateResult{
		Text:       text,
		TokensUsed: resp.TokensEvaluated + resp.TokensPredicted,
	}, nil
}

func (l *LlamaProvider) callCompletion(ctx context.Context, prompt string, req GenerateRequest) (*llamaCompletionResponse, error) {
	body, err := json.Marshal(llamaCompletionRequest{
		Prompt:      prompt,
		NPredict:    req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      false,
		CachePrompt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("completion error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp llamaCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (l *LlamaProvider) Model() string {
	return DefaultLlamaModel
}

func (l *LlamaProvider) Close() error {
	l.httpClient.CloseIdleConnections()
	return nil
}

// cleanCompletion strips artifacts an instruct model tends to echo back:
// end-of-sequence markers, instruction tags, dangling code-fence lines, and
// a trailing sentence fragment cut off by the token budget.
func cleanCompletion(text string) string {
	text = strings.ReplaceAll(text, "<|endoftext|>", "")
	text = strings.ReplaceAll(text, "</s>", "")
	text = strings.ReplaceAll(text, "[INST]", "")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "```") || strings.HasSuffix(line, "```python") || strings.HasSuffix(line, "```json") {
			continue
		}
		lines = append(lines, line)
	}
	cleaned := strings.Join(lines, "\n")

	sentences := strings.Split(cleaned, ". ")
	if len(sentences) > 1 && len(sentences[len(sentences)-1]) < 20 {
		cleaned = strings.Join(sentences[:len(sentences)-1], ". ") + "."
	}

	return strings.TrimSpace(cleaned)
}
