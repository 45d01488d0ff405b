package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/coupon-console/internal/nav"
	sess "github.com/fairyhunter13/coupon-console/internal/session"
)

func TestRequireSession_WaitsWhileLoading(t *testing.T) {
	a := newTestApp(t, sess.State{Loading: true})

	resp, body := a.get(t, "/dashboard")

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, RetryAfterSeconds, resp.Header.Get("Retry-After"))
	assert.Contains(t, body, "view=loading")
}

func TestRequireSession_AnonymousRedirectsToLogin(t *testing.T) {
	a := newTestApp(t, sess.State{})

	resp, _ := a.get(t, "/admin/coupons?page=2")

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?from=%2Fadmin%2Fcoupons%3Fpage%3D2", resp.Header.Get("Location"))
}

func TestRequireSession_WrongRoleRedirectsToUnauthorized(t *testing.T) {
	a := newTestApp(t, userState)

	resp, _ := a.get(t, "/admin/images")

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, nav.UnauthorizedPath, resp.Header.Get("Location"))
}

func TestRequireSession_AnySignedInUserSeesDashboard(t *testing.T) {
	a := newTestApp(t, userState)

	resp, body := a.get(t, "/dashboard")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "view=dashboard")
	assert.Contains(t, body, "username=bob")
	assert.Contains(t, body, "is_admin=false")
}

func TestRequireSession_FollowsLiveState(t *testing.T) {
	a := newTestApp(t, adminState)

	resp, _ := a.get(t, "/admin/coupons")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	a.sessions.set(sess.State{})
	resp, _ = a.get(t, "/admin/coupons")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
}

func TestPublicPages(t *testing.T) {
	a := newTestApp(t, sess.State{})

	testCases := []struct {
		path   string
		status int
		view   string
	}{
		{path: "/", status: fiber.StatusOK, view: "view=home"},
		{path: "/login", status: fiber.StatusOK, view: "view=login"},
		{path: "/unauthorized", status: fiber.StatusForbidden, view: "view=unauthorized"},
		{path: "/no/such/page", status: fiber.StatusNotFound, view: "view=not_found"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			resp, body := a.get(t, tc.path)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Contains(t, body, tc.view)
		})
	}
}

func TestNavigation_RecordedTargetBecomesRedirect(t *testing.T) {
	app := fiber.New()
	app.Use(Navigation())
	app.Get("/page", func(c *fiber.Ctx) error {
		assert.Equal(t, "/page?x=1", nav.FromContext(c.UserContext(), nil).Location())
		nav.FromContext(c.UserContext(), nil).NavigateTo(nav.LoginPath)
		return c.SendString("protected content")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return c.SendString("plain content")
	})

	req := httptest.NewRequest(http.MethodGet, "/page?x=1", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, nav.LoginPath, resp.Header.Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/plain", nil)
	resp, err = app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
