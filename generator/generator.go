package generator

import "context"

// Model is descriptive metadata about one model a provider can serve.
type Model struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ContextWindow int    `json:"context_window,omitempty"`
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ListModels(ctx context.Context) (map[string]Model, error)
	ValidateKey(ctx context.Context) (bool, error)
}
