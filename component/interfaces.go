package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of the process.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information about a component.
type Description struct {
	// Name is the human-readable display name. If empty, Name() is used.
	Name string
	// Type categorizes the component, e.g. "transport" or "multiplexer".
	Type string
	// Details is a one-line configuration summary, e.g. "timeout=30s per-host=8".
	Details string
}

// Describable is optionally implemented by Components to self-report
// what they are and how they are configured.
type Describable interface {
	Describe() Description
}
