package ranker

import (
	"path/filepath"
	"strings"

	"github.com/repoqa/repoqa/pkg/types"
)

// Point values for the individual scoring signals
const (
	pointsPathToken      = 8
	pointsPathSubToken   = 5
	pointsChunkerBoost   = 10
	pointsEmbeddingBoost = 8
	pointsDefaultBoost   = 6
	pointsLanguageMatch  = 2
	pointsCommonLanguage = 1
	pointsDocExtension   = 4
	pointsCodeExtension  = 2
	pointsConfExtension  = 1
	pointsSpecialName    = 2

	// Sub-tokens shorter than this add too much noise to score
	minSubTokenLen = 4
)

// fileFacts caches the lowercased views of a candidate that rules match on
type fileFacts struct {
	path     string
	segments []string
	language string
	ext      string
}

func factsFor(c *types.FileCandidate) *fileFacts {
	path := strings.ToLower(c.Path)
	return &fileFacts{
		path:     path,
		segments: strings.Split(path, "_"),
		language: strings.ToLower(c.Language),
		ext:      strings.ToLower(filepath.Ext(path)),
	}
}

func (f *fileFacts) pathContainsAny(subs []string) bool {
	for _, s := range subs {
		if strings.Contains(f.path, s) {
			return true
		}
	}
	return false
}

// rule is one scoring signal: hits reports how many times the signal fires
// for a candidate, and the rule contributes points per hit.
type rule struct {
	name   string
	points float64
	hits   func(f *fileFacts, q *queryTerms) int
}

// defaultRules is the full path-level signal table. Adding a signal means
// appending a row, not growing a conditional chain.
func defaultRules() []rule {
	return []rule{
		{
			name:   "path-token",
			points: pointsPathToken,
			hits: func(f *fileFacts, q *queryTerms) int {
				n := 0
				for _, tok := range q.tokens {
					if strings.Contains(f.path, tok) {
						n++
					}
				}
				return n
			},
		},
		{
			name:   "path-subtoken",
			points: pointsPathSubToken,
			hits: func(f *fileFacts, q *queryTerms) int {
				n := 0
				for _, tok := range q.tokens {
					if len(tok) < minSubTokenLen {
						continue
					}
					for _, seg := range f.segments {
						if strings.Contains(seg, tok) {
							n++
							break
						}
					}
				}
				return n
			},
		},
		domainRule("chunker-boost", pointsChunkerBoost,
			[]string{"chunker", "chunking", "chunk", "service"},
			[]string{"chunker"}),
		domainRule("embedding-boost", pointsEmbeddingBoost,
			[]string{"embedding", "model", "config", "configuration"},
			[]string{"config", "chunker", "embedding"}),
		domainRule("default-boost", pointsDefaultBoost,
			[]string{"default", "parameter", "setting"},
			[]string{"config", "chunker", "main"}),
		{
			name:   "language-mention",
			points: pointsLanguageMatch,
			hits: func(f *fileFacts, q *queryTerms) int {
				if f.language == "" {
					return 0
				}
				for _, tok := range q.tokens {
					if strings.Contains(f.language, tok) {
						return 1
					}
				}
				return 0
			},
		},
		{
			name:   "common-language",
			points: pointsCommonLanguage,
			hits: func(f *fileFacts, _ *queryTerms) int {
				if _, ok := commonLanguages[f.language]; ok {
					return 1
				}
				return 0
			},
		},
		extensionRule("doc-extension", pointsDocExtension, docExtensions),
		extensionRule("code-extension", pointsCodeExtension, codeExtensions),
		extensionRule("config-extension", pointsConfExtension, confExtensions),
		{
			name:   "special-name",
			points: pointsSpecialName,
			hits: func(f *fileFacts, _ *queryTerms) int {
				n := 0
				for _, name := range specialNames {
					if strings.Contains(f.path, name) {
						n++
					}
				}
				return n
			},
		},
	}
}

// domainRule fires once when the query carries any of the tokens and the
// path carries any of the substrings. These rows encode the observation
// that certain file-name patterns disproportionately answer certain
// question categories.
func domainRule(name string, points float64, queryTokens, pathSubstrings []string) rule {
	return rule{
		name:   name,
		points: points,
		hits: func(f *fileFacts, q *queryTerms) int {
			if q.hasAny(queryTokens) && f.pathContainsAny(pathSubstrings) {
				return 1
			}
			return 0
		},
	}
}

func extensionRule(name string, points float64, exts map[string]struct{}) rule {
	return rule{
		name:   name,
		points: points,
		hits: func(f *fileFacts, _ *queryTerms) int {
			if _, ok := exts[f.ext]; ok {
				return 1
			}
			return 0
		},
	}
}

var commonLanguages = map[string]struct{}{
	"python":     {},
	"javascript": {},
	"typescript": {},
	"go":         {},
}

var (
	docExtensions = map[string]struct{}{
		".md": {},
	}
	codeExtensions = map[string]struct{}{
		".py": {}, ".js": {}, ".ts": {}, ".go": {}, ".java": {},
		".rs": {}, ".c": {}, ".cpp": {}, ".rb": {},
	}
	confExtensions = map[string]struct{}{
		".txt": {}, ".json": {}, ".yaml": {}, ".yml": {}, ".toml": {},
	}
)

// specialNames are file-name fragments that answer questions often enough
// to deserve a flat prior
var specialNames = []string{
	"readme", "config", "main", "index", "chunker", "indexer", "crawler",
}
