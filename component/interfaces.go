package component

import "context"

// HealthStatus is the state a component reports to the probes.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's probe result.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// String renders "name=status(message)" for logs and errors.
func (h Health) String() string {
	s := h.Name + "=" + string(h.Status)
	if h.Message != "" {
		s += "(" + h.Message + ")"
	}
	return s
}

// Component is infrastructure with a start/stop lifecycle: the database,
// redis, the event publisher, telemetry and the HTTP server.
type Component interface {
	// Name is unique within a Registry.
	Name() string
	Start(ctx context.Context) error
	// Stop releases resources. It is only called after a successful Start.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is the startup log line for a component.
type Description struct {
	Type    string // "database", "redis", "kafka", "server"
	Details string // e.g. "sqlite pool=1/1 auto-migrate=on"
}

// Describable components report their configuration when started.
type Describable interface {
	Describe() Description
}
