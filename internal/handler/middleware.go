package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/coupon-console/internal/guard"
	"github.com/fairyhunter13/coupon-console/internal/nav"
)

// Navigation gives each request its own nav.Recorder. Any navigation recorded
// while handling the request (by the guard or by the API client after a 401)
// replaces the response with a 303 redirect.
func Navigation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec := nav.NewRecorder(c.OriginalURL())
		c.SetUserContext(nav.WithRouter(c.UserContext(), rec))

		err := c.Next()

		if target, ok := rec.Target(); ok && target != c.OriginalURL() {
			c.Response().ResetBody()
			return c.Redirect(target, fiber.StatusSeeOther)
		}
		return err
	}
}

// RetryAfterSeconds is sent with the waiting page while the session loads.
const RetryAfterSeconds = "1"

// RequireSession gates the following handlers on the route guard over the
// visitor's session. An empty role admits any signed-in user.
func RequireSession(view *View, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		router := nav.FromContext(c.UserContext(), nil)
		if router == nil {
			router = nav.NewRecorder(c.OriginalURL())
		}

		d := guard.New(sessionsOf(c)).Check(router, role)
		switch d.Outcome {
		case guard.Allow:
			return c.Next()
		case guard.Wait:
			c.Set(fiber.HeaderRetryAfter, RetryAfterSeconds)
			return view.Render(c, "loading", fiber.StatusServiceUnavailable, nil)
		default:
			return c.Redirect(d.Target, fiber.StatusSeeOther)
		}
	}
}
