package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/ragchat/generator"
)

type openAIGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
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
		return "", errors.New("no response from OpenAI")
	}

	return rsp.Choices[0].Message.Content, nil
}

func (g *openAIGenerator) ListModels(ctx context.Context) (map[string]generator.Model, error) {
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

func (g *openAIGenerator) ValidateKey(ctx context.Context) (bool, error) {
	if _, err := g.client.ListModels(ctx); err != nil {
		return false, err
	}

	return true, nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &openAIGenerator{
		options: options,
	}

	client := openai.NewClient(options.ApiKey)

	g.client = client

	return g
}
