package retriever

import "context"

type Option func(*Options)

type Options struct {
	K       int
	FetchK  int
	Lambda  float64
	Context context.Context
}

func WithK(k int) Option {
	return func(o *Options) {
		o.K = k
	}
}

func WithFetchK(fetchK int) Option {
	return func(o *Options) {
		o.FetchK = fetchK
	}
}

func WithLambda(lambda float64) Option {
	return func(o *Options) {
		o.Lambda = lambda
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		K:       5,
		FetchK:  20,
		Lambda:  0.7,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
