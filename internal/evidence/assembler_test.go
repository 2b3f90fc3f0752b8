package evidence

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoqa/repoqa/internal/ranker"
	"github.com/repoqa/repoqa/pkg/types"
)

func scored(path, content string, score float64) ranker.ScoredCandidate {
	return ranker.ScoredCandidate{
		Candidate: types.FileCandidate{
			Path: path,
			Content: func(maxBytes int) (string, error) {
				if maxBytes > 0 && len(content) > maxBytes {
					return content[:maxBytes], nil
				}
				return content, nil
			},
		},
		Score: score,
	}
}

func unreadable(path string, score float64) ranker.ScoredCandidate {
	return ranker.ScoredCandidate{
		Candidate: types.FileCandidate{
			Path: path,
			Content: func(int) (string, error) {
				return "", errors.New("gone")
			},
		},
		Score: score,
	}
}

func TestAssembleDeduplicatesBeforeTruncation(t *testing.T) {
	a := New()

	// The duplicate of a.py would displace c.py if truncation ran first.
	ranked := []ranker.ScoredCandidate{
		scored("a.py", "alpha", 20),
		scored("a.py", "alpha-copy", 18),
		scored("b.py", "bravo", 15),
		scored("c.py", "charlie", 12),
	}

	refs := a.Assemble(ranked, 3)
	require.Len(t, refs, 3)
	assert.Equal(t, "a.py", refs[0].File)
	assert.Equal(t, "b.py", refs[1].File)
	assert.Equal(t, "c.py", refs[2].File)

	// The kept entry for a duplicated path carries the maximum score.
	assert.InDelta(t, 20.0/30.0, refs[0].Score, 1e-9)
	assert.Equal(t, "alpha", refs[0].Content)
}

func TestAssembleKeepsTopMaxSources(t *testing.T) {
	a := New()
	ranked := []ranker.ScoredCandidate{
		scored("a.py", "1", 30),
		scored("b.py", "2", 20),
		scored("c.py", "3", 10),
		scored("d.py", "4", 5),
	}

	refs := a.Assemble(ranked, 2)
	require.Len(t, refs, 2)
	assert.Equal(t, "a.py", refs[0].File)
	assert.Equal(t, "b.py", refs[1].File)
}

func TestAssembleDefaultBound(t *testing.T) {
	a := New()
	ranked := []ranker.ScoredCandidate{
		scored("a.py", "1", 30),
		scored("b.py", "2", 20),
		scored("c.py", "3", 10),
		scored("d.py", "4", 5),
	}

	assert.Len(t, a.Assemble(ranked, 0), DefaultKept)
	assert.Len(t, a.Assemble(ranked, -1), DefaultKept)
}

func TestAssembleTruncatesLongContent(t *testing.T) {
	a := New()
	long := strings.Repeat("x", ExcerptBudget+200)

	refs := a.Assemble([]ranker.ScoredCandidate{scored("big.py", long, 10)}, 1)
	require.Len(t, refs, 1)

	assert.True(t, strings.HasSuffix(refs[0].Content, TruncationMarker))
	assert.Equal(t, ExcerptBudget+len(TruncationMarker), len(refs[0].Content))
}

func TestAssembleShortContentIsNotMarked(t *testing.T) {
	a := New()

	refs := a.Assemble([]ranker.ScoredCandidate{scored("small.py", "short content", 10)}, 1)
	require.Len(t, refs, 1)
	assert.Equal(t, "short content", refs[0].Content)
}

func TestAssembleSkipsUnreadableWithoutBackfill(t *testing.T) {
	a := New()
	ranked := []ranker.ScoredCandidate{
		scored("a.py", "alpha", 20),
		unreadable("b.py", 15),
		scored("c.py", "charlie", 10),
		scored("d.py", "delta", 5),
	}

	// b.py occupies a kept slot even though it cannot be read, so d.py is
	// not pulled in as a replacement.
	refs := a.Assemble(ranked, 3)
	require.Len(t, refs, 2)
	assert.Equal(t, "a.py", refs[0].File)
	assert.Equal(t, "c.py", refs[1].File)
}

func TestScoreNormalization(t *testing.T) {
	a := New()
	ranked := []ranker.ScoredCandidate{
		scored("a.py", "x", 15),
		scored("b.py", "y", 90),
	}

	refs := a.Assemble(ranked, 2)
	require.Len(t, refs, 2)
	assert.InDelta(t, 0.5, refs[0].Score, 1e-9)
	assert.Equal(t, 1.0, refs[1].Score)

	for i := range refs {
		require.NoError(t, refs[i].Validate())
	}
}

func TestLineRangeCoversExcerpt(t *testing.T) {
	a := New()

	refs := a.Assemble([]ranker.ScoredCandidate{
		scored("multi.py", "line one\nline two\nline three", 10),
		scored("single.py", "only line", 8),
	}, 2)
	require.Len(t, refs, 2)

	assert.Equal(t, 1, refs[0].LineStart)
	assert.Equal(t, 3, refs[0].LineEnd)
	assert.Equal(t, 1, refs[1].LineStart)
	assert.Equal(t, 1, refs[1].LineEnd)
}

func TestRenderContext(t *testing.T) {
	t.Run("labels blocks without scores or fences", func(t *testing.T) {
		a := New()
		refs := []types.SourceReference{
			{File: "src/config.py", Content: "CHUNK_SIZE = 1000"},
			{File: "README.md", Content: "# Overview"},
		}

		out := a.RenderContext(refs)
		assert.Equal(t, "From src/config.py:\nCHUNK_SIZE = 1000\n\nFrom README.md:\n# Overview", out)
		assert.NotContains(t, out, "```")
		assert.NotContains(t, out, "score")
	})

	t.Run("empty evidence renders empty string", func(t *testing.T) {
		assert.Equal(t, "", New().RenderContext(nil))
	})
}

func TestAssembleEmptyInput(t *testing.T) {
	assert.Empty(t, New().Assemble(nil, 3))
}
