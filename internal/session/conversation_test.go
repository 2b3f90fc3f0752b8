package session

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoqa/repoqa/pkg/types"
)

func newTestConversation(t *testing.T) *Conversation {
	t.Helper()
	r := NewRegistry()
	sid := r.ResolveOrCreateSession("")
	return r.ResolveOrCreateConversation(sid, "")
}

func TestAppendKeepsOrder(t *testing.T) {
	conv := newTestConversation(t)

	require.NoError(t, conv.Append(userMsg("first")))
	require.NoError(t, conv.Append(assistantMsg("second")))
	require.NoError(t, conv.Append(userMsg("third")))

	history := conv.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, "third", history[2].Content)
}

func TestAppendRejectsInvalidMessages(t *testing.T) {
	conv := newTestConversation(t)

	err := conv.Append(types.Message{Role: "system", Content: "nope"})
	assert.ErrorIs(t, err, types.ErrInvalidRole)

	err = conv.Append(types.Message{Role: types.RoleUser})
	assert.ErrorIs(t, err, types.ErrEmptyContent)

	assert.Equal(t, 0, conv.Len())
}

func TestTitleDerivation(t *testing.T) {
	t.Run("placeholder until two messages exist", func(t *testing.T) {
		conv := newTestConversation(t)
		require.NoError(t, conv.Append(userMsg("How does chunking work?")))

		assert.Equal(t, PlaceholderTitle, conv.Info().Title)

		require.NoError(t, conv.Append(assistantMsg("It splits files.")))
		assert.Equal(t, "How does chunking work?", conv.Info().Title)
	})

	t.Run("long first message is cut to 30 characters with ellipsis", func(t *testing.T) {
		conv := newTestConversation(t)
		long := strings.Repeat("x", 45)
		require.NoError(t, conv.AppendExchange(userMsg(long), assistantMsg("ok")))

		title := conv.Info().Title
		assert.Equal(t, strings.Repeat("x", 30)+"...", title)
	})

	t.Run("title is not recomputed once set", func(t *testing.T) {
		conv := newTestConversation(t)
		require.NoError(t, conv.AppendExchange(userMsg("original question"), assistantMsg("a")))
		require.NoError(t, conv.AppendExchange(userMsg("different question"), assistantMsg("b")))

		assert.Equal(t, "original question", conv.Info().Title)
	})
}

func TestHistoryLimit(t *testing.T) {
	conv := newTestConversation(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, conv.AppendExchange(userMsg("q"), assistantMsg("a")))
	}

	assert.Len(t, conv.History(0), 10)
	assert.Len(t, conv.History(-1), 10)
	assert.Len(t, conv.History(4), 4)

	// Limited history keeps the newest messages
	last := conv.History(1)
	require.Len(t, last, 1)
	assert.Equal(t, types.RoleAssistant, last[0].Role)
}

func TestBuildContext(t *testing.T) {
	t.Run("empty conversation yields empty string", func(t *testing.T) {
		conv := newTestConversation(t)
		assert.Equal(t, "", conv.BuildContext(5))
	})

	t.Run("formats alternating roles oldest first", func(t *testing.T) {
		conv := newTestConversation(t)
		require.NoError(t, conv.AppendExchange(userMsg("what is this?"), assistantMsg("a service")))

		ctx := conv.BuildContext(5)
		assert.Equal(t, "User: what is this?\nAssistant: a service", ctx)
	})

	t.Run("window bounds the number of lines", func(t *testing.T) {
		conv := newTestConversation(t)
		for i := 0; i < 6; i++ {
			require.NoError(t, conv.AppendExchange(userMsg("q"), assistantMsg("a")))
		}

		ctx := conv.BuildContext(5)
		lines := strings.Split(ctx, "\n")
		assert.Len(t, lines, 5)
		// The window is taken from the tail, so the oldest retained line
		// is an assistant message here.
		assert.True(t, strings.HasPrefix(lines[0], "Assistant: "))
	})

	t.Run("non-positive window falls back to default", func(t *testing.T) {
		conv := newTestConversation(t)
		for i := 0; i < 4; i++ {
			require.NoError(t, conv.AppendExchange(userMsg("q"), assistantMsg("a")))
		}

		lines := strings.Split(conv.BuildContext(0), "\n")
		assert.Len(t, lines, DefaultContextWindow)
	})
}

func TestAppendExchangeIsAtomic(t *testing.T) {
	conv := newTestConversation(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conv.AppendExchange(userMsg("q"), assistantMsg("a"))
		}()
	}
	wg.Wait()

	history := conv.History(0)
	require.Len(t, history, 32)
	// Pairs never interleave: every user message is directly followed by
	// an assistant message.
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, types.RoleUser, history[i].Role)
		assert.Equal(t, types.RoleAssistant, history[i+1].Role)
	}
}

func TestContextSummary(t *testing.T) {
	conv := newTestConversation(t)
	require.NoError(t, conv.AppendExchange(userMsg("first question"), assistantMsg("first answer")))
	require.NoError(t, conv.AppendExchange(userMsg("second question"), assistantMsg("second answer")))

	sum := conv.ContextSummary()
	assert.Equal(t, conv.ID(), sum.ConversationID)
	assert.Equal(t, 4, sum.MessageCount)
	assert.Equal(t, 2, sum.UserMessageCount)
	assert.Equal(t, 2, sum.AssistantMessageCount)
	assert.Equal(t, "second question", sum.LastQuery)
	assert.Equal(t, "second answer", sum.LastResponse)
	assert.False(t, sum.LastUpdated.Before(sum.CreatedAt))
}

func TestAssistantMessageCarriesSources(t *testing.T) {
	conv := newTestConversation(t)

	msg := assistantMsg("answer")
	msg.Sources = []types.SourceReference{{File: "src/config.py", LineStart: 1, LineEnd: 3, Score: 0.5, Content: "x"}}
	require.NoError(t, conv.Append(msg))

	history := conv.History(0)
	require.Len(t, history, 1)
	require.Len(t, history[0].Sources, 1)
	assert.Equal(t, "src/config.py", history[0].Sources[0].File)
}
