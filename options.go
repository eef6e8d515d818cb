package ragchat

import (
	"context"

	"github.com/w-h-a/ragchat/generator"
	"github.com/w-h-a/ragchat/provider"
)

// Resolver turns a (provider, model, key) triple into a generator. It is an
// option so tests can substitute a stub for the real gateway.
type Resolver func(providerId string, modelId string, apiKey string) (generator.Generator, error)

type Option func(*Options)

type Options struct {
	Resolver Resolver
	Context  context.Context
}

func WithResolver(resolver Resolver) Option {
	return func(o *Options) {
		o.Resolver = resolver
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Resolver: provider.Resolve,
		Context:  context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
