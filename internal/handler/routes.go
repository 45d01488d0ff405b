package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/coupon-console/internal/model"
)

// Handlers groups everything Register mounts.
type Handlers struct {
	Visitors VisitorResolver
	View     *View
	Auth     *AuthHandler
	Pages    *PageHandler
	Coupons  *CouponHandler
	Images   *ImageHandler
	Health   *HealthHandler
	// SecureCookies marks the csrf cookie HTTPS-only.
	SecureCookies bool
}

// Register mounts the console routes on app.
func Register(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.Check)

	app.Use(CSRF(h.View, h.SecureCookies))
	app.Use(Identify(h.Visitors, h.View))
	app.Use(Navigation())

	app.Get("/", h.Pages.Home)
	app.Get("/login", h.Auth.LoginPage)
	app.Post("/login", h.Auth.Login)
	app.Post("/logout", h.Auth.Logout)
	app.Get("/unauthorized", h.Pages.Unauthorized)

	app.Get("/dashboard", RequireSession(h.View, ""), h.Pages.Dashboard)

	admin := app.Group("/admin", RequireSession(h.View, model.RoleAdmin))

	admin.Get("/coupons", h.Coupons.List)
	admin.Get("/coupons/new", h.Coupons.New)
	admin.Post("/coupons", h.Coupons.Create)
	admin.Get("/coupons/:id", h.Coupons.Show)
	admin.Post("/coupons/:id", h.Coupons.Update)
	admin.Get("/coupons/:id/edit", h.Coupons.Edit)
	admin.Post("/coupons/:id/delete", h.Coupons.Delete)

	admin.Get("/images", h.Images.List)
	admin.Post("/images", h.Images.Upload)
	admin.Get("/images/:id/content", h.Images.Content)
	admin.Post("/images/:id/delete", h.Images.Delete)

	app.Use(h.Pages.NotFound)
}
