package handlers

import (
	"context"
	"time"

	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	serviceHealthy     = "healthy"
	serviceUnavailable = "unavailable"
	serviceDisabled    = "disabled"

	healthPingTimeout = 2 * time.Second
)

// Pinger is a dependency the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	database    Pinger
	redis       Pinger
	connManager *services.ConnectionManager
}

// NewHealthHandler creates a new health handler. Pass nil for a dependency
// that is not configured.
func NewHealthHandler(database, redis Pinger, connManager *services.ConnectionManager) *HealthHandler {
	return &HealthHandler{database: database, redis: redis, connManager: connManager}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return serviceDisabled
	}
	if err := p.Ping(ctx); err != nil {
		return serviceUnavailable
	}
	return serviceHealthy
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()

	body := fiber.Map{
		"success":   true,
		"message":   "API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": fiber.Map{
			"app":      serviceHealthy,
			"database": probe(ctx, h.database),
			"redis":    probe(ctx, h.redis),
		},
	}
	if h.connManager != nil {
		body["connections"] = h.connManager.Count()
	}
	return c.JSON(body)
}
