package server

import (
	"time"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/metrics"
)

// Options configures the HTTP API server.
type Options struct {
	// Addr is the address to listen on.
	Addr string

	// APIKeys are accepted bearer tokens. Empty disables authentication.
	APIKeys []string

	// RequestTimeout bounds each request.
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	Metrics *metrics.Metrics
	Logger  log.Logger
}

// DefaultOptions returns the default options for the API server.
func DefaultOptions() *Options {
	return &Options{
		Addr:            "127.0.0.1:9464",
		RequestTimeout:  2 * time.Minute,
		ShutdownTimeout: 5 * time.Second,
		Logger:          log.GetDefaultLogger(),
	}
}

// Option is a function that configures the API server options.
type Option func(*Options)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Options) {
		o.Addr = addr
	}
}

// WithAuth enables bearer token authentication.
func WithAuth(apiKeys []string) Option {
	return func(o *Options) {
		o.APIKeys = apiKeys
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
