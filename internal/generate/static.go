package generate

import (
	"context"
	"strings"
)

// DefaultStaticResponse is returned when no canned text is configured
const DefaultStaticResponse = "No generation backend is configured. The most relevant files for this question are listed under sources."

// StaticProvider is an offline Generator returning a fixed completion. It
// keeps the query pipeline usable in tests and in deployments without a
// model backend.
type StaticProvider struct {
	response string
}

// NewStaticProvider creates a static generator. An empty response selects
// DefaultStaticResponse.
func NewStaticProvider(response string) *StaticProvider {
	if response == "" {
		response = DefaultStaticResponse
	}
	return &StaticProvider{response: response}
}

func (s *StaticProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	return &GenerateResult{
		Text:       s.response,
		TokensUsed: len(strings.Fields(s.response)),
	}, nil
}

func (s *StaticProvider) Model() string {
	return ProviderStatic
}

func (s *StaticProvider) Close() error {
	return nil
}
