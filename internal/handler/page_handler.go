package handler

import (
	"github.com/gofiber/fiber/v2"
)

// PageHandler serves the static pages.
type PageHandler struct {
	*View
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(view *View) *PageHandler {
	return &PageHandler{View: view}
}

// Home handles GET /.
func (h *PageHandler) Home(c *fiber.Ctx) error {
	return h.Render(c, "home", fiber.StatusOK, nil)
}

// Dashboard handles GET /dashboard.
func (h *PageHandler) Dashboard(c *fiber.Ctx) error {
	return h.Render(c, "dashboard", fiber.StatusOK, nil)
}

// Unauthorized handles GET /unauthorized.
func (h *PageHandler) Unauthorized(c *fiber.Ctx) error {
	return h.Render(c, "unauthorized", fiber.StatusForbidden, nil)
}

// NotFound renders the catch-all 404 page.
func (h *PageHandler) NotFound(c *fiber.Ctx) error {
	return h.Render(c, "not_found", fiber.StatusNotFound, nil)
}
