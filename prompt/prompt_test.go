package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/ragchat/document"
)

func TestComposeGrounded(t *testing.T) {
	page := 3

	out := Compose(Input{
		Question: "What is the notice period?",
		Chunks: []document.Chunk{
			{Content: "Either party may terminate with thirty days notice.", Metadata: document.Metadata{Filename: "contract.pdf", Page: &page}},
		},
	})

	assert.Contains(t, out, "extraction-focused assistant")
	assert.NotContains(t, out, "CONVERSATION HISTORY")
	assert.Contains(t, out, "Document 1:\nSource: contract.pdf\nPage: 3")
	assert.Contains(t, out, "Either party may terminate with thirty days notice.")
	assert.Contains(t, out, "User Question:\nWhat is the notice period?")
}

func TestComposeWithHistory(t *testing.T) {
	out := Compose(Input{
		Question: "And for the employer?",
		ConversationHistory: []Turn{
			{Role: "user", Content: "What is the notice period?"},
			{Role: "assistant", Content: "Thirty days."},
		},
	})

	assert.Contains(t, out, "context-aware assistant")
	assert.Contains(t, out, "CONVERSATION HISTORY:\nUser: What is the notice period?\nAssistant: Thirty days.")
}

func TestComposeHistoryPriority(t *testing.T) {
	in := Input{
		Question:            "q",
		CrossSessionContext: "User: my name is Pat",
		ConversationHistory: []Turn{{Role: "user", Content: "earlier question"}},
		SessionHistory:      "User: stale session line\nAssistant: stale answer",
	}

	out := Compose(in)

	// cross-session context comes first, caller-supplied turns after it
	crossAt := strings.Index(out, "LONG-TERM CONTEXT (from previous sessions):")
	turnsAt := strings.Index(out, "User: earlier question")
	require.Greater(t, crossAt, -1)
	require.Greater(t, turnsAt, -1)
	assert.Less(t, crossAt, turnsAt)

	// the in-process fallback never leaks in when either layer is present
	assert.NotContains(t, out, "stale session line")
}

func TestComposeSessionHistoryFallback(t *testing.T) {
	out := Compose(Input{
		Question:       "q",
		SessionHistory: "User: prior question\nAssistant: prior answer",
	})

	assert.Contains(t, out, "CONVERSATION HISTORY:\nUser: prior question\nAssistant: prior answer")
}

func TestFormatChunks(t *testing.T) {
	chunks := []document.Chunk{
		{Content: "first", Metadata: document.Metadata{Filename: "a.pdf"}},
		{Content: "second", Metadata: document.Metadata{SourceType: document.SourceTypeURL, SourceURL: "https://example.com"}},
		{Content: "third", Metadata: document.Metadata{}},
	}

	out := FormatChunks(chunks)

	parts := strings.Split(out, "\n\n---\n\n")
	require.Len(t, parts, 3)
	assert.Contains(t, parts[0], "Document 1:\nSource: a.pdf\nPage: N/A")
	assert.Contains(t, parts[1], "Source: https://example.com")
	assert.Contains(t, parts[2], "Source: Unknown")
}

func TestFormatChunksEmpty(t *testing.T) {
	assert.Empty(t, FormatChunks(nil))
}
