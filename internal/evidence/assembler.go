// Package evidence turns ranked candidates into the bounded set of source
// excerpts fed to the generator and returned to callers.
package evidence

import (
	"fmt"
	"strings"

	"github.com/repoqa/repoqa/internal/ranker"
	"github.com/repoqa/repoqa/pkg/types"
)

const (
	// DefaultKept is used when the caller passes a non-positive bound
	DefaultKept = 3

	// ExcerptBudget is the excerpt length cap in characters
	ExcerptBudget = 500

	// TruncationMarker is appended to an excerpt that was cut
	TruncationMarker = "\n... (truncated)"

	// scoreDivisor normalizes raw ranking points into [0, 1]. Raw scores
	// top out around 30 for a strong match.
	scoreDivisor = 30.0

	// readBudget covers ExcerptBudget characters even for multi-byte runes
	readBudget = 4 * ExcerptBudget
)

// Assembler builds evidence sets from ranked candidates
type Assembler struct{}

// New creates an Assembler
func New() *Assembler {
	return &Assembler{}
}

// Assemble deduplicates ranked candidates by path, keeps the top maxSources
// by score, and reads a bounded excerpt for each. Deduplication runs before
// truncation so a duplicated path can never displace a distinct relevant
// file. Candidates whose content cannot be read are skipped.
func (a *Assembler) Assemble(ranked []ranker.ScoredCandidate, maxSources int) []types.SourceReference {
	if maxSources <= 0 {
		maxSources = DefaultKept
	}

	// Dedupe first. Input is ordered by score descending, so the first
	// occurrence of a path carries its maximum score.
	seen := make(map[string]struct{}, len(ranked))
	kept := make([]*ranker.ScoredCandidate, 0, maxSources)
	for i := range ranked {
		if _, dup := seen[ranked[i].Candidate.Path]; dup {
			continue
		}
		seen[ranked[i].Candidate.Path] = struct{}{}
		kept = append(kept, &ranked[i])
		if len(kept) >= maxSources {
			break
		}
	}

	refs := make([]types.SourceReference, 0, len(kept))
	for _, sc := range kept {
		cand := &sc.Candidate
		if cand.Content == nil {
			continue
		}
		raw, err := cand.Content(readBudget)
		if err != nil {
			continue
		}

		excerpt, truncated := boundExcerpt(raw)
		body := excerpt
		if truncated {
			excerpt += TruncationMarker
		}

		refs = append(refs, types.SourceReference{
			File:      cand.Path,
			LineStart: 1,
			LineEnd:   1 + strings.Count(body, "\n"),
			Score:     normalizeScore(sc.Score),
			Content:   excerpt,
		})
	}
	return refs
}

// RenderContext formats the excerpts for the generator prompt. Blocks carry
// only the path label and raw excerpt; scores and fencing are deliberately
// left out so the generator never sees metadata syntax.
func (a *Assembler) RenderContext(refs []types.SourceReference) string {
	if len(refs) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(refs))
	for i := range refs {
		blocks = append(blocks, fmt.Sprintf("From %s:\n%s", refs[i].File, refs[i].Content))
	}
	return strings.Join(blocks, "\n\n")
}

// boundExcerpt cuts content to the excerpt budget, counting characters
// rather than bytes so multi-byte runes are never split
func boundExcerpt(content string) (string, bool) {
	runes := []rune(content)
	if len(runes) <= ExcerptBudget {
		return content, false
	}
	return string(runes[:ExcerptBudget]), true
}

func normalizeScore(raw float64) float64 {
	score := raw / scoreDivisor
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}
