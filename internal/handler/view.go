package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/nav"
	"github.com/fairyhunter13/coupon-console/internal/service"
	sess "github.com/fairyhunter13/coupon-console/internal/session"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

const (
	flashKindKey    = "flash_kind"
	flashMessageKey = "flash_message"
)

// StateSource provides the current session state.
type StateSource interface {
	State() sess.State
}

// Flash stores one-shot notices in the visitor's cookie session.
type Flash struct {
	store *session.Store
}

// NewFlash wraps a fiber session store.
func NewFlash(store *session.Store) *Flash {
	return &Flash{store: store}
}

// Set queues a notice for the next rendered page.
func (f *Flash) Set(c *fiber.Ctx, kind, message string) {
	s, err := f.store.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("flash: session unavailable")
		return
	}
	s.Set(flashKindKey, kind)
	s.Set(flashMessageKey, message)
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Msg("flash: failed to save session")
	}
}

// Pop returns and clears the queued notice.
func (f *Flash) Pop(c *fiber.Ctx) fiber.Map {
	s, err := f.store.Get(c)
	if err != nil {
		return nil
	}
	message, _ := s.Get(flashMessageKey).(string)
	if message == "" {
		return nil
	}
	kind, _ := s.Get(flashKindKey).(string)
	s.Delete(flashKindKey)
	s.Delete(flashMessageKey)
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Msg("flash: failed to save session")
	}
	return fiber.Map{"kind": kind, "message": message}
}

// View renders templates with the layout data every page needs.
type View struct {
	AppName string
	Flash   *Flash
}

// Render writes the named template with status.
func (v *View) Render(c *fiber.Ctx, name string, status int, data fiber.Map) error {
	bind := fiber.Map{}
	for k, val := range data {
		bind[k] = val
	}

	st := sessionsOf(c).State()
	bind["app_name"] = v.AppName
	bind["authenticated"] = st.Authenticated
	bind["username"] = st.Username
	bind["role"] = st.Role
	bind["is_admin"] = st.IsAdmin()
	bind["current_path"] = c.Path()
	if tok, ok := c.Locals(CSRFContextKey).(string); ok {
		bind["csrf_token"] = tok
	}
	if v.Flash != nil {
		if notice := v.Flash.Pop(c); notice != nil {
			bind["flash"] = notice
		}
	}

	return c.Status(status).Render(name, bind)
}

// Notify queues a flash notice when flash support is configured.
func (v *View) Notify(c *fiber.Ctx, kind, message string) {
	if v.Flash != nil {
		v.Flash.Set(c, kind, message)
	}
}

// Fail renders the page matching a failed backend call.
func (v *View) Fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		// The client already cleared the session and recorded the login redirect.
		return c.Redirect(nav.LoginPath, fiber.StatusSeeOther)
	case errors.Is(err, service.ErrCouponNotFound), errors.Is(err, service.ErrImageNotFound):
		return v.Render(c, "not_found", fiber.StatusNotFound, fiber.Map{"message": err.Error()})
	case errors.Is(err, service.ErrInvalidRequest):
		return v.Render(c, "error", fiber.StatusBadRequest, fiber.Map{"message": err.Error()})
	case errors.Is(err, service.ErrRejected):
		return v.Render(c, "error", fiber.StatusBadGateway, fiber.Map{"message": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("backend call failed")
		return v.Render(c, "error", fiber.StatusBadGateway, fiber.Map{"message": "The coupon service is unavailable. Please try again."})
	}
}
