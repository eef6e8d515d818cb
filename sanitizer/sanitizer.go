package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Paired reasoning tags some models emit before the real answer. The
	// whole span is removed, content included.
	reasoningBlocks = []*regexp.Regexp{
		regexp.MustCompile(`(?s)<think>.*?</think>`),
		regexp.MustCompile(`(?s)<thinking>.*?</thinking>`),
		regexp.MustCompile(`(?s)<reasoning>.*?</reasoning>`),
	}

	emphasisChars  = regexp.MustCompile("[`*]")
	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// Sanitize cleans raw model output before it is returned to the caller.
// Reasoning blocks are stripped first; doing the character filtering first
// could leave partial tag fragments behind as printable text.
func Sanitize(raw string) string {
	text := raw

	for _, block := range reasoningBlocks {
		text = block.ReplaceAllString(text, "")
	}

	text = emphasisChars.ReplaceAllString(text, "")

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}
	text = sb.String()

	text = excessNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
