package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/ragchat/generator"
	"google.golang.org/api/iterator"
	genaiopt "google.golang.org/api/option"
)

type geminiGenerator struct {
	options generator.Options
	client  *genai.Client
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	fullPrompt := prompt
	if len(g.options.PromptPrefix) > 0 {
		fullPrompt = g.options.PromptPrefix + "\n" + prompt
	}

	req := genai.Text(fullPrompt)

	model := g.client.GenerativeModel(g.options.Model)
	rsp, err := model.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	return b.String(), nil
}

func (g *geminiGenerator) ListModels(ctx context.Context) (map[string]generator.Model, error) {
	models := map[string]generator.Model{}

	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		// Only chat-capable models are useful here
		if !supportsGeneration(m) {
			continue
		}

		id := strings.TrimPrefix(m.Name, "models/")

		models[id] = generator.Model{
			Id:            id,
			Name:          m.DisplayName,
			Description:   m.Description,
			ContextWindow: int(m.InputTokenLimit),
		}
	}

	return models, nil
}

func (g *geminiGenerator) ValidateKey(ctx context.Context) (bool, error) {
	it := g.client.ListModels(ctx)
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return false, err
	}

	return true, nil
}

func supportsGeneration(m *genai.ModelInfo) bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

func NewGenerator(opts ...generator.Option) (generator.Generator, error) {
	options := generator.NewOptions(opts...)

	g := &geminiGenerator{
		options: options,
	}

	client, err := genai.NewClient(
		options.Context,
		genaiopt.WithAPIKey(options.ApiKey),
	)
	if err != nil {
		return nil, err
	}

	g.client = client

	return g, nil
}
