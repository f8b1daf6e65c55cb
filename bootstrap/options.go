package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/inflight/flight"
	"github.com/kbukum/inflight/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	transport       flight.Transport
	summaryOut      io.Writer
	gracefulTimeout *time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithTransport replaces the HTTP transport the multiplexer performs calls with.
func WithTransport(t flight.Transport) Option {
	return func(o *appOptions) {
		o.transport = t
	}
}

// WithSummaryOutput redirects the startup summary. A nil writer disables it.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) {
		if w == nil {
			w = io.Discard
		}
		o.summaryOut = w
	}
}
