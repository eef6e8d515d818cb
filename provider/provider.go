package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/w-h-a/ragchat/generator"
	"github.com/w-h-a/ragchat/generator/anthropic"
	"github.com/w-h-a/ragchat/generator/gemini"
	"github.com/w-h-a/ragchat/generator/groq"
	"github.com/w-h-a/ragchat/generator/openai"
	"github.com/w-h-a/ragchat/generator/openrouter"
)

// Factory binds a (model, key) pair to a concrete generator.
type Factory func(opts ...generator.Option) (generator.Generator, error)

// factories is the closed set of known providers. Adding a provider is a
// pure-addition change: implement generator.Generator and register it here.
var factories = map[string]Factory{
	"gemini": func(opts ...generator.Option) (generator.Generator, error) {
		return gemini.NewGenerator(opts...)
	},
	"openrouter": func(opts ...generator.Option) (generator.Generator, error) {
		return openrouter.NewGenerator(opts...), nil
	},
	"groq": func(opts ...generator.Option) (generator.Generator, error) {
		return groq.NewGenerator(opts...), nil
	},
	"openai": func(opts ...generator.Option) (generator.Generator, error) {
		return openai.NewGenerator(opts...), nil
	},
	"anthropic": func(opts ...generator.Option) (generator.Generator, error) {
		return anthropic.NewGenerator(opts...), nil
	},
}

// Names returns the known provider ids, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve validates the triple and returns a generator bound to it. Unknown
// providers and empty keys are configuration errors, never silent defaults.
func Resolve(providerId string, modelId string, apiKey string) (generator.Generator, error) {
	factory, ok := factories[providerId]
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid provider: %s, must be one of %s", providerId, strings.Join(Names(), ", "))}
	}

	if len(strings.TrimSpace(apiKey)) == 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("api key is required for %s", providerId)}
	}

	g, err := factory(
		generator.WithApiKey(apiKey),
		generator.WithModel(modelId),
	)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("provider initialization failed: %v", err)}
	}

	return g, nil
}
