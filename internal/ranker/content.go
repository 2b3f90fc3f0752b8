package ranker

import (
	"strings"

	"github.com/repoqa/repoqa/pkg/types"
)

const (
	// contentPrefixBytes bounds how much of a file is read for scoring
	contentPrefixBytes = 1000

	// contentScoreCap keeps one large file from dominating on content alone
	contentScoreCap = 10

	pointsContentToken = 3
	pointsSynonymTerm  = 2
	pointsCodeMarker   = 1
	pointsConfigMarker = 2
)

// synonymTable expands a query token into related terms worth finding in
// content. Each found term scores independently.
var synonymTable = map[string][]string{
	"embedding": {"sentence", "transformer", "model", "vector", "embedding"},
	"config":    {"config", "configuration", "setting", "default", "parameter"},
	"chunking":  {"chunk", "chunking", "split", "segment", "token"},
	"model":     {"model", "llm", "transformer", "neural", "ai"},
}

var codeMarkers = []string{"class ", "def ", "function ", "func "}

var configMarkers = []string{"config", "settings", "default", "parameter"}

// contentScore reads a bounded prefix of the candidate and scores token,
// synonym, and marker matches against it. The result is capped at
// contentScoreCap. A read failure, including a file that no longer exists,
// scores 0 and is never reported upward.
func contentScore(c *types.FileCandidate, q *queryTerms) float64 {
	if c.Content == nil {
		return 0
	}
	prefix, err := c.Content(contentPrefixBytes)
	if err != nil {
		return 0
	}
	content := strings.ToLower(prefix)

	var score float64
	for _, tok := range q.tokens {
		if strings.Contains(content, tok) {
			score += pointsContentToken
		}
	}

	for _, tok := range q.tokens {
		for _, term := range synonymTable[tok] {
			if strings.Contains(content, term) {
				score += pointsSynonymTerm
			}
		}
	}

	if containsAny(content, codeMarkers) {
		score += pointsCodeMarker
	}
	if containsAny(content, configMarkers) {
		score += pointsConfigMarker
	}

	if score > contentScoreCap {
		score = contentScoreCap
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
