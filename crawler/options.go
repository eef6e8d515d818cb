package crawler

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Timeout       time.Duration
	MaxPages      int
	MinTextLength int
	Context       context.Context
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

func WithMaxPages(maxPages int) Option {
	return func(o *Options) {
		o.MaxPages = maxPages
	}
}

func WithMinTextLength(minTextLength int) Option {
	return func(o *Options) {
		o.MinTextLength = minTextLength
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Timeout:       20 * time.Second,
		MaxPages:      50,
		MinTextLength: 40,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
