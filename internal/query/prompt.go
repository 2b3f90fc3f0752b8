package query

import "strings"

// systemPrompt steers the generator toward grounded, specific answers
const systemPrompt = `You are an expert code analysis assistant. Your role is to help developers understand codebases by:
- Explaining code functionality clearly and concisely
- Identifying patterns, best practices, and potential issues
- Providing actionable insights and recommendations
- Answering questions about code structure, dependencies, and implementation details

When analyzing code, be specific, accurate, and helpful.

IMPORTANT: When answering technical questions:
1. Be precise with specific values, names, and parameters
2. Quote exact code snippets when available
3. Distinguish between different files and their purposes
4. If you're unsure about specific values, say so rather than guessing
5. Focus on the most relevant information from the source files`

// buildPrompt assembles the user-side prompt: prior conversation turns,
// rendered evidence bounded to maxContextLen characters, then the question.
// Either leading section is omitted when empty.
func buildPrompt(question, conversationContext, evidenceContext string, maxContextLen int) string {
	var b strings.Builder

	if conversationContext != "" {
		b.WriteString("Previous Conversation:\n")
		b.WriteString(conversationContext)
		b.WriteString("\n\n")
	}

	if evidenceContext != "" {
		b.WriteString("Relevant Code:\n")
		b.WriteString(clampRunes(evidenceContext, maxContextLen))
		b.WriteString("\n\n")
	}

	b.WriteString("User Question: ")
	b.WriteString(question)
	return b.String()
}

// clampRunes bounds s to max characters, never splitting a rune. A
// non-positive max means unbounded.
func clampRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
