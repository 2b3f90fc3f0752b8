// Package query implements the orchestration core. One call runs a question
// through session resolution, the response cache, candidate retrieval,
// ranking, evidence assembly, generation, fact-checking, and history
// recording, in that fixed order. Generation runs with no lock held.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/repoqa/repoqa/internal/config"
	"github.com/repoqa/repoqa/internal/evidence"
	"github.com/repoqa/repoqa/internal/factcheck"
	"github.com/repoqa/repoqa/internal/generate"
	"github.com/repoqa/repoqa/internal/ranker"
	"github.com/repoqa/repoqa/internal/respcache"
	"github.com/repoqa/repoqa/internal/session"
	"github.com/repoqa/repoqa/pkg/types"
)

// CandidateSource supplies the files eligible for ranking. Implementations
// return the current candidate set in crawl order; the engine re-ranks it
// for every query rather than trusting any upstream ordering.
type CandidateSource interface {
	// Candidates returns the candidate set for a query. It returns
	// types.ErrNotIndexed when no repository has been indexed.
	Candidates(ctx context.Context, query string) ([]types.FileCandidate, error)
}

// Config assembles an Engine. Generator and Source are required. Nil
// collaborators default to fresh instances; pass shared ones when another
// surface needs the same state (the HTTP management routes read the
// engine's Registry).
type Config struct {
	Registry  *session.Registry
	Ranker    *ranker.Ranker
	Assembler *evidence.Assembler
	Cache     *respcache.Cache
	Checker   *factcheck.Checker
	Generator generate.Generator
	Source    CandidateSource

	// HistoryWindow is the number of prior messages included in each
	// prompt. Non-positive selects session.DefaultContextWindow.
	HistoryWindow int

	// MaxContextLength bounds the rendered evidence in characters.
	// Non-positive selects config.DefaultMaxContextLength.
	MaxContextLength int
}

// Engine runs queries end to end. Construct with NewEngine; the zero value
// is not usable.
type Engine struct {
	registry  *session.Registry
	ranker    *ranker.Ranker
	assembler *evidence.Assembler
	cache     *respcache.Cache
	checker   *factcheck.Checker
	generator generate.Generator
	source    CandidateSource

	historyWindow int
	maxContextLen int
}

// NewEngine wires an engine from cfg
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Generator == nil {
		return nil, errors.New("query: generator is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("query: candidate source is required")
	}

	e := &Engine{
		registry:      cfg.Registry,
		ranker:        cfg.Ranker,
		assembler:     cfg.Assembler,
		cache:         cfg.Cache,
		checker:       cfg.Checker,
		generator:     cfg.Generator,
		source:        cfg.Source,
		historyWindow: cfg.HistoryWindow,
		maxContextLen: cfg.MaxContextLength,
	}
	if e.registry == nil {
		e.registry = session.NewRegistry()
	}
	if e.ranker == nil {
		e.ranker = ranker.New()
	}
	if e.assembler == nil {
		e.assembler = evidence.New()
	}
	if e.cache == nil {
		e.cache = respcache.New(respcache.DefaultCapacity)
	}
	if e.checker == nil {
		e.checker = factcheck.New()
	}
	if e.historyWindow <= 0 {
		e.historyWindow = session.DefaultContextWindow
	}
	if e.maxContextLen <= 0 {
		e.maxContextLen = config.DefaultMaxContextLength
	}
	return e, nil
}

// Query answers one question end to end. Identifiers are resolved leniently
// before the cache check so even a cached answer lands in a live session. A
// cache hit returns the stored response verbatim and records nothing. On
// generation failure the conversation is left unmodified; both messages of
// a successful exchange are recorded together afterward.
func (e *Engine) Query(ctx context.Context, req types.QueryRequest) (*types.QueryResponse, error) {
	question := strings.TrimSpace(req.Query)
	if question == "" {
		return nil, types.ErrEmptyQuery
	}

	sessionID := e.registry.ResolveOrCreateSession(req.SessionID)
	conv := e.registry.ResolveOrCreateConversation(sessionID, req.ConversationID)

	maxSources := req.EffectiveMaxSources()
	cacheKey := respcache.Key(req.Query, maxSources)
	if cached, ok := e.cache.Get(cacheKey); ok {
		return cached, nil
	}

	candidates, err := e.source.Candidates(ctx, question)
	if err != nil {
		if errors.Is(err, types.ErrNotIndexed) {
			return nil, err
		}
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, types.ErrNotIndexed
	}

	ranked := e.ranker.Rank(candidates, question)
	sources := e.assembler.Assemble(ranked, maxSources)

	// Context is captured before the new user message is recorded, so the
	// prompt never contains the question twice.
	conversationContext := conv.BuildContext(e.historyWindow)
	prompt := buildPrompt(question, conversationContext, e.assembler.RenderContext(sources), e.maxContextLen)

	result, err := e.generator.Generate(ctx, generate.GenerateRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrGenerationFailed, err)
	}

	answer := e.checker.Check(question, result.Text, sources)

	userMsg := types.Message{Role: types.RoleUser, Content: question}
	assistantMsg := types.Message{Role: types.RoleAssistant, Content: answer, Sources: sources}
	if err := conv.AppendExchange(userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("record exchange: %w", err)
	}

	resp := &types.QueryResponse{
		Response:       answer,
		Sources:        sources,
		ConversationID: conv.ID(),
		SessionID:      sessionID,
		Timestamp:      time.Now().UTC(),
		Model:          e.generator.Model(),
		TokensUsed:     result.TokensUsed,
	}
	e.cache.Put(cacheKey, resp)
	return resp, nil
}

// Registry exposes the session registry for the management surfaces
func (e *Engine) Registry() *session.Registry {
	return e.registry
}

// Model reports the active generator's model name
func (e *Engine) Model() string {
	return e.generator.Model()
}

// CacheSize returns the number of cached responses
func (e *Engine) CacheSize() int {
	return e.cache.Len()
}

// ResetCache drops every cached response. The index service calls this when
// the indexed repository is cleared or replaced, since cached answers may
// cite files that no longer exist.
func (e *Engine) ResetCache() {
	e.cache.Reset()
}

// Close releases the generator. The engine must not be used afterward.
func (e *Engine) Close() error {
	return e.generator.Close()
}
