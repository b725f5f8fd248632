// Package health checks that the components a command depends on are reachable:
// the form store always, the cache and the broker when they are configured.
package health

import (
	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.uber.org/zap"
)

type (
	// Healther is implemented by every component that can report its availability.
	Healther interface {
		// IsHealthy returns true if the component can serve requests.
		// Implementations should answer quickly.
		IsHealthy() bool
	}

	// Status is the outcome of one component check.
	Status struct {
		Name    string `json:"name"`
		Healthy bool   `json:"healthy"`
	}

	component struct {
		name     string
		healther Healther
	}

	// HealthChecker aggregates named Healther implementations and reports the overall state.
	HealthChecker struct {
		logger     *logger.Logger
		components []component
	}
)

// NewHealthChecker creates a HealthChecker without components; see Register.
func NewHealthChecker(logger *logger.Logger) *HealthChecker {
	return &HealthChecker{
		logger: logger,
	}
}

// Register adds a component under name. A nil healther is ignored so optional
// backends can be registered unconditionally.
func (h *HealthChecker) Register(name string, healther Healther) *HealthChecker {
	if healther == nil {
		return h
	}

	h.components = append(h.components, component{name: name, healther: healther})
	return h
}

// Check asks every component in registration order. ok is false when any of them
// is unhealthy; each failure is logged.
func (h *HealthChecker) Check() (statuses []Status, ok bool) {
	ok = true
	statuses = make([]Status, 0, len(h.components))

	for _, c := range h.components {
		healthy := c.healther.IsHealthy()
		if !healthy {
			ok = false
			h.logger.Error("health check failed", zap.String("component", c.name))
		}

		statuses = append(statuses, Status{Name: c.name, Healthy: healthy})
	}

	return statuses, ok
}

// IsHealthy reports whether every registered component is healthy.
func (h *HealthChecker) IsHealthy() bool {
	_, ok := h.Check()
	return ok
}
