package httptransport

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/inflight/component"
	"github.com/kbukum/inflight/flight"
)

var errNotStarted = stderrors.New("http transport is not started")

// Component wraps an Adapter with lifecycle management. It implements
// flight.Transport itself, so a multiplexer can be built before Start.
type Component struct {
	config Config
	opts   []Option

	mu      sync.RWMutex
	adapter *Adapter
}

// compile-time assertions
var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
	_ flight.Transport      = (*Component)(nil)
)

// NewComponent creates a new HTTP transport component.
// The adapter is created in Start.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Name == "" {
		return "http"
	}
	return c.config.Name
}

// Start creates the HTTP adapter.
func (c *Component) Start(context.Context) error {
	a, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.adapter = a
	c.mu.Unlock()
	return nil
}

// Stop closes the HTTP adapter. Calls performed afterwards fail.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	a := c.adapter
	c.adapter = nil
	c.mu.Unlock()
	if a != nil {
		return a.Close(ctx)
	}
	return nil
}

// Endpoint builds a flight endpoint for path, joined onto the configured
// base URL when path is relative. It does not need the component started.
func (c *Component) Endpoint(method, path string, opts ...flight.EndpointOption) flight.Endpoint {
	return flight.NewEndpoint(method, joinURL(c.config.BaseURL, path), opts...)
}

// Perform delegates to the adapter.
func (c *Component) Perform(ctx context.Context, ep flight.Endpoint) (*flight.Response, error) {
	a := c.Adapter()
	if a == nil {
		return nil, flight.TransportError(DomainHTTP, 0, errNotStarted)
	}
	return a.Perform(ctx, ep)
}

// Health reports unhealthy before Start and degraded while any host's
// circuit breaker is open.
func (c *Component) Health(ctx context.Context) component.Health {
	a := c.Adapter()
	switch {
	case a == nil:
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	case !a.IsAvailable(ctx):
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "circuit open"}
	default:
		return component.Health{Name: c.Name(), Status: component.StatusHealthy}
	}
}

// Describe returns component description for the startup summary.
func (c *Component) Describe() component.Description {
	details := c.config.BaseURL
	if c.config.Timeout > 0 {
		details = fmt.Sprintf("%s timeout=%s", details, c.config.Timeout)
	}
	return component.Description{
		Name:    c.Name(),
		Type:    "http-transport",
		Details: details,
	}
}

// Adapter returns the underlying HTTP adapter, or nil before Start.
func (c *Component) Adapter() *Adapter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adapter
}
