package observability

import "time"

// Config configures tracing and metric export.
type Config struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	TracingEnabled bool          `yaml:"tracing_enabled" mapstructure:"tracing_enabled"`
	MetricsEnabled bool          `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

// ApplyDefaults fills unset fields with development defaults.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}
