package prompt

import (
	"fmt"
	"strings"

	"github.com/w-h-a/ragchat/document"
)

// Turn is one prior message supplied by the caller with the request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Input carries everything the composer may blend into a generation prompt.
// CrossSessionContext comes from durable storage spanning prior sessions;
// ConversationHistory is supplied with the request; SessionHistory is the
// in-process short-term memory used only when the first two are absent.
type Input struct {
	Question            string
	Chunks              []document.Chunk
	CrossSessionContext string
	ConversationHistory []Turn
	SessionHistory      string
}

const groundedTemplate = `You are a helpful, precise, and extraction-focused assistant.

Your task is to answer the user's question strictly using the provided context and uploaded document content.

INSTRUCTIONS:
- Use ONLY the given context and uploaded document content
- Extract ONLY information that is clearly readable, meaningful, and relevant
- Ignore OCR noise, garbled text, broken words, random symbols, or unreadable fragments
- Do NOT repeat raw OCR output
- Do NOT use external knowledge
- Do NOT add assumptions or inferred meaning
- If the answer cannot be clearly derived from readable content, say the information is not available

ANSWER RULES:
- Answer ONLY the user's question
- Keep answers short, direct, and meaningful
- Preserve key factual information without distortion
- Avoid repetition
- Do NOT use the '*' symbol anywhere in the answer

SPECIAL BEHAVIOR FOR OUT-OF-CONTEXT OR CASUAL QUESTIONS:
- If the question is unrelated to the document or context, reply with a short natural response only

Context:
%s

User Question:
%s

Answer:
`

const historyTemplate = `You are a helpful, precise, and context-aware assistant.

Your task is to answer the user's question using the conversation history, provided context, and uploaded document content.

CONVERSATION HISTORY:
%s

INSTRUCTIONS:
- Use the conversation history to maintain context and remember previously shared information
- Use the given context and uploaded document content to provide accurate answers
- Extract ONLY information that is clearly readable, meaningful, and relevant
- Ignore OCR noise, garbled text, broken words, random symbols, or unreadable fragments
- Do NOT repeat raw OCR output
- Do NOT add assumptions or inferred meaning
- If the answer cannot be clearly derived from readable content or the conversation, say the information is not available
- Reference previous context when relevant to the current question

ANSWER RULES:
- Answer ONLY the user's question
- Keep answers short, direct, and meaningful
- Preserve key factual information without distortion
- Avoid repetition
- Do NOT use the '*' symbol anywhere in the answer

SPECIAL BEHAVIOR FOR OUT-OF-CONTEXT OR CASUAL QUESTIONS:
- If the question is unrelated to the document or context, reply with a short natural response only

Context:
%s

User Question:
%s

Answer:
`

// Compose selects between the two templates on a single boolean: whether any
// history exists. The context section is always present, empty when nothing
// was retrieved.
func Compose(in Input) string {
	history := assembleHistory(in)

	context := FormatChunks(in.Chunks)

	if len(history) > 0 {
		return fmt.Sprintf(historyTemplate, history, context, in.Question)
	}

	return fmt.Sprintf(groundedTemplate, context, in.Question)
}

// assembleHistory builds the history block as a strict priority chain:
// cross-session context first, then caller-supplied turns. The in-process
// session history is a fallback used only when both are absent; layers are
// never merged or deduplicated against each other.
func assembleHistory(in Input) string {
	var blocks []string

	if len(strings.TrimSpace(in.CrossSessionContext)) > 0 {
		blocks = append(blocks, "LONG-TERM CONTEXT (from previous sessions):\n"+in.CrossSessionContext)
	}

	if len(in.ConversationHistory) > 0 {
		var sb strings.Builder
		for _, turn := range in.ConversationHistory {
			label := "User"
			if turn.Role == "assistant" {
				label = "Assistant"
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, turn.Content))
		}
		blocks = append(blocks, strings.TrimSuffix(sb.String(), "\n"))
	}

	if len(blocks) == 0 && len(strings.TrimSpace(in.SessionHistory)) > 0 {
		blocks = append(blocks, in.SessionHistory)
	}

	return strings.Join(blocks, "\n\n")
}

// FormatChunks renders retrieved chunks for the context section, each with a
// 1-based index, source, page, and content.
func FormatChunks(chunks []document.Chunk) string {
	formatted := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		source := chunk.Metadata.Filename
		if chunk.Metadata.SourceType == document.SourceTypeURL {
			source = chunk.Metadata.SourceURL
		}
		if len(source) == 0 {
			source = "Unknown"
		}

		page := "N/A"
		if chunk.Metadata.Page != nil {
			page = fmt.Sprintf("%d", *chunk.Metadata.Page)
		}

		formatted = append(formatted, strings.TrimSpace(fmt.Sprintf(
			"Document %d:\nSource: %s\nPage: %s\n\nContent:\n%s",
			i+1, source, page, chunk.Content,
		)))
	}

	return strings.Join(formatted, "\n\n---\n\n")
}
