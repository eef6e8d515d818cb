package moderator

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/w-h-a/ragchat/generator"
)

// Category names a class of disallowed content.
type Category string

const (
	CategoryProfanity  Category = "profanity"
	CategoryThreat     Category = "threat"
	CategoryHarassment Category = "harassment"
	CategorySpam       Category = "spam"
)

// Report is the detailed outcome of a moderation check.
type Report struct {
	Clean      bool       `json:"clean"`
	Categories []Category `json:"categories,omitempty"`
	Message    string     `json:"message,omitempty"`
}

var categoryPatterns = map[Category]*regexp.Regexp{
	CategoryProfanity:  regexp.MustCompile(`(?i)\b(fuck\w*|shit\w*|bitch\w*|asshole\w*|bastard\w*|cunt\w*)\b`),
	CategoryThreat:     regexp.MustCompile(`(?i)\b(kill|hurt|attack|destroy|murder)\b.{0,24}\b(you|them|him|her|everyone)\b`),
	CategoryHarassment: regexp.MustCompile(`(?i)\b(stupid|idiot|moron|worthless|pathetic)\b.{0,24}\b(you|bot|assistant)\b`),
}

// spamRunLength is the run of identical consecutive runes that flags a
// message as spam. RE2 has no backreferences, so this is a plain scan.
const spamRunLength = 15

func isSpam(text string) bool {
	var prev rune
	run := 0

	for _, r := range text {
		if r == prev {
			run++
			if run >= spamRunLength {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}

	return false
}

var defaultResponses = map[Category]string{
	CategoryProfanity:  "I'd be happy to help, but let's keep the conversation respectful.",
	CategoryThreat:     "I can't assist with that. If you're going through something difficult, please reach out to someone who can help.",
	CategoryHarassment: "I'm here to help. Let's keep things constructive.",
	CategorySpam:       "That message doesn't look like something I can work with. Could you rephrase your question?",
}

// Moderator is a pre-filter gate run before the engine. Input that passes is
// trusted downstream; flagged input gets a polite refusal instead of an
// answer.
type Moderator struct {
	options Options
}

// Moderate screens text. When a generator is supplied, the refusal is
// phrased by the model; a failed generation falls back to the canned
// response for the category, never blocks the refusal itself.
func (m *Moderator) Moderate(ctx context.Context, text string, gen generator.Generator) (bool, string) {
	if len(strings.TrimSpace(text)) == 0 {
		return false, "Please provide a message."
	}

	report := m.Report(text)
	if report.Clean {
		return true, ""
	}

	primary := report.Categories[0]

	slog.WarnContext(ctx, "content flagged", "category", primary)

	if gen != nil {
		if response := m.phraseResponse(ctx, text, primary, gen); len(response) > 0 {
			return false, response
		}
	}

	return false, defaultResponses[primary]
}

// Report runs the category checks without generating a response.
func (m *Moderator) Report(text string) Report {
	report := Report{Clean: true}

	for _, category := range []Category{CategoryProfanity, CategoryThreat, CategoryHarassment} {
		if categoryPatterns[category].MatchString(text) {
			report.Clean = false
			report.Categories = append(report.Categories, category)
		}
	}

	if isSpam(text) {
		report.Clean = false
		report.Categories = append(report.Categories, CategorySpam)
	}

	if !report.Clean {
		report.Message = defaultResponses[report.Categories[0]]
	}

	return report
}

func (m *Moderator) phraseResponse(ctx context.Context, text string, category Category, gen generator.Generator) string {
	prompt := "A user sent a message that was flagged for " + string(category) + ". " +
		"Write one short, calm sentence declining to engage and inviting them to rephrase respectfully. " +
		"Do not repeat or quote their message.\n\nUser message: " + text

	response, err := gen.Generate(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "failed to phrase moderation response", "error", err)
		return ""
	}

	return strings.TrimSpace(response)
}

func NewModerator(opts ...Option) *Moderator {
	options := NewOptions(opts...)

	m := &Moderator{
		options: options,
	}

	return m
}
