package handler

import (
	"context"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// VisitorCounter reports how many visitor sessions are kept.
type VisitorCounter interface {
	Len() int
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks   map[string]Pinger
	visitors VisitorCounter
}

// NewHealthHandler creates a new HealthHandler. checks names the backing
// services to ping (token store backends); it may be empty.
func NewHealthHandler(checks map[string]Pinger, visitors VisitorCounter) *HealthHandler {
	return &HealthHandler{checks: checks, visitors: visitors}
}

// Check pings every dependency.
// Returns 200 OK with {"status": "healthy"} when all are reachable.
// Returns 503 Service Unavailable with {"status": "unhealthy", "failed": [...]} otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		if err := h.checks[name].Ping(c.UserContext()); err != nil {
			log.Error().Err(err).Str("dependency", name).Msg("health check failed")
			failed = append(failed, name)
		}
	}

	body := fiber.Map{"status": "healthy"}
	if h.visitors != nil {
		body["visitors"] = h.visitors.Len()
	}

	if len(failed) > 0 {
		body["status"] = "unhealthy"
		body["failed"] = failed
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}
