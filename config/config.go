package config

import (
	"github.com/kbukum/inflight/errors"
	"github.com/kbukum/inflight/flight"
	"github.com/kbukum/inflight/httptransport"
	"github.com/kbukum/inflight/observability"
	"github.com/kbukum/inflight/validation"
	"github.com/kbukum/inflight/version"
)

// Config is the complete configuration of an inflight client process.
//
//	name: catalog-client
//	environment: production
//	logging:
//	  level: info
//	  format: json
//	transport:
//	  base_url: https://api.example.com
//	  timeout: 10s
//	  circuit_breaker:
//	    max_failures: 5
//	multiplexer:
//	  call_timeout: 15s
//	observability:
//	  tracing_enabled: true
//	  endpoint: otel-collector:4318
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Transport     httptransport.Config `yaml:"transport" mapstructure:"transport"`
	Multiplexer   flight.Config        `yaml:"multiplexer" mapstructure:"multiplexer"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section, deriving names and versions from the
// service section where a section leaves them unset.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.Version == "" {
		c.Version = version.GetShortVersion()
	}
	if c.Multiplexer.Name == "" {
		c.Multiplexer.Name = c.Name
	}
	c.Multiplexer.ApplyDefaults()
	c.Transport.ApplyDefaults()

	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Multiplexer.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Observability); err != nil {
		return errors.InvalidConfig("observability", err)
	}
	return nil
}

// Load reads the configuration for serviceName, applies defaults and validates it.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
