package openrouter

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/ragchat/generator"
)

// OpenRouter speaks the OpenAI chat protocol at its own base URL.
const baseURL = "https://openrouter.ai/api/v1"

type openRouterGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openRouterGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	fullPrompt := prompt
	if len(g.options.PromptPrefix) > 0 {
		fullPrompt = g.options.PromptPrefix + "\n" + prompt
	}

	req := openai.ChatCompletionRequest{
		Model: g.options.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fullPrompt,
			},
		},
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", errors.New("no response from OpenRouter")
	}

	return rsp.Choices[0].Message.Content, nil
}

func (g *openRouterGenerator) ListModels(ctx context.Context) (map[string]generator.Model, error) {
	rsp, err := g.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	models := make(map[string]generator.Model, len(rsp.Models))
	for _, m := range rsp.Models {
		models[m.ID] = generator.Model{
			Id:   m.ID,
			Name: m.ID,
		}
	}

	return models, nil
}

func (g *openRouterGenerator) ValidateKey(ctx context.Context) (bool, error) {
	if _, err := g.client.ListModels(ctx); err != nil {
		return false, err
	}

	return true, nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &openRouterGenerator{
		options: options,
	}

	config := openai.DefaultConfig(options.ApiKey)
	config.BaseURL = baseURL

	g.client = openai.NewClientWithConfig(config)

	return g
}
