package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/model"
	"github.com/fairyhunter13/coupon-console/internal/nav"
	"github.com/fairyhunter13/coupon-console/internal/session"
)

// SessionManager is the part of session.Manager the console drives.
type SessionManager interface {
	StateSource
	Login(ctx context.Context, creds model.LoginRequest) error
	Logout(ctx context.Context)
}

// AuthHandler serves the login and logout endpoints.
type AuthHandler struct {
	*View
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(view *View) *AuthHandler {
	return &AuthHandler{View: view}
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	From     string `form:"from"`
}

// LoginPage handles GET /login.
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	from := nav.SafeReturnPath(c.Query("from"), nav.HomePath)
	if sessionsOf(c).State().Authenticated {
		return c.Redirect(from, fiber.StatusSeeOther)
	}
	return h.Render(c, "login", fiber.StatusOK, fiber.Map{"from": from})
}

// Login handles POST /login. On success it returns to the page that asked for
// the sign-in; on failure the form is shown again with the reason.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form loginForm
	if err := c.BodyParser(&form); err != nil {
		return h.Render(c, "login", fiber.StatusBadRequest, fiber.Map{"error": "invalid request body"})
	}
	from := nav.SafeReturnPath(form.From, nav.HomePath)

	sessions := sessionsOf(c)
	err := sessions.Login(c.UserContext(), model.LoginRequest{Username: form.Username, Password: form.Password})
	if err != nil {
		var authErr *session.AuthenticationError
		status := fiber.StatusUnauthorized
		message := "Login failed. Please try again."
		if errors.As(err, &authErr) {
			message = authErr.Message
		} else {
			status = fiber.StatusBadGateway
			log.Error().Err(err).Msg("login request failed")
		}
		return h.Render(c, "login", status, fiber.Map{
			"error":          message,
			"username_input": form.Username,
			"from":           from,
		})
	}

	h.Notify(c, FlashSuccess, "Signed in as "+sessions.State().Username)
	return c.Redirect(from, fiber.StatusSeeOther)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sessionsOf(c).Logout(c.UserContext())
	h.Notify(c, FlashSuccess, "You have been signed out")
	return c.Redirect(nav.LoginPath, fiber.StatusSeeOther)
}
