package httptransport

import (
	"time"

	"github.com/kbukum/inflight/errors"
	"github.com/kbukum/inflight/resilience"
	"github.com/kbukum/inflight/validation"
	"github.com/kbukum/inflight/version"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 32 << 20
)

// Config configures the HTTP transport.
type Config struct {
	// Name identifies the transport in logs and health reports. Defaults to "http".
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is joined with relative endpoint URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,http_url"`

	// Timeout bounds each call, including reading the body. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// MaxBodyBytes caps the response payload. Defaults to 32 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`

	// UserAgent overrides the default inflight User-Agent.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are default headers applied to all requests. Endpoint headers
	// take precedence.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// CircuitBreaker configures a breaker per host. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimiter configures a rate limiter per host. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`

	// Bulkhead caps concurrent calls per host. Nil disables it.
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return errors.InvalidConfig("transport", err)
	}
	v := validation.New()
	for name, value := range c.Headers {
		v.HeaderName("headers", name).HeaderValue("headers."+name, value)
	}
	if err := v.Err(); err != nil {
		return errors.InvalidConfig("transport", err)
	}
	return nil
}

// DefaultCircuitBreakerConfig returns a default per-host circuit breaker config.
func DefaultCircuitBreakerConfig() *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig("")
	return &cfg
}

// DefaultRateLimiterConfig returns a default per-host rate limiter config.
func DefaultRateLimiterConfig() *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig("")
	return &cfg
}

// DefaultBulkheadConfig returns a default per-host bulkhead config.
func DefaultBulkheadConfig() *resilience.BulkheadConfig {
	cfg := resilience.DefaultBulkheadConfig("")
	return &cfg
}
