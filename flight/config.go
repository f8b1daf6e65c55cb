package flight

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/inflight/errors"
	"github.com/kbukum/inflight/logger"
	"github.com/kbukum/inflight/observability"
	"github.com/kbukum/inflight/validation"
)

// Config holds multiplexer settings.
type Config struct {
	// Name identifies the multiplexer in logs, health reports and spans.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	// CallTimeout bounds each network call. Zero means no bound beyond the transport's own.
	CallTimeout time.Duration `yaml:"call_timeout" mapstructure:"call_timeout" validate:"gte=0"`
	// LogEntries logs every started, joined, completed and cancelled call at debug level.
	LogEntries bool `yaml:"log_entries" mapstructure:"log_entries"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "multiplexer"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return errors.InvalidConfig("multiplexer", err)
	}
	return nil
}

// Option configures a Multiplexer.
type Option func(*options)

type options struct {
	config  Config
	log     *logger.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

func defaultOptions() options {
	return options{
		log:    logger.Nop(),
		tracer: noop.NewTracerProvider().Tracer(observability.InstrumentationName),
	}
}

// WithConfig sets the multiplexer configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records call metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer starts a span per network call on t.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}
