package http

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Address  string
	CacheTTL time.Duration
	Context  context.Context
}

func WithAddress(address string) Option {
	return func(o *Options) {
		o.Address = address
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.CacheTTL = ttl
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Address:  ":8000",
		CacheTTL: 30 * time.Second,
		Context:  context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
