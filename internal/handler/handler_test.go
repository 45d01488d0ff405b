package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coupon-console/internal/model"
	sess "github.com/fairyhunter13/coupon-console/internal/session"
)

// stubViews renders "view=<name>" followed by the sorted bind keys and values,
// so tests can assert on what a page received without parsing HTML.
type stubViews struct{}

func (stubViews) Load() error { return nil }

func (stubViews) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "view=%s\n", name)
	if m, ok := binding.(fiber.Map); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%v\n", k, m[k])
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// fakeSessions is a settable SessionManager.
type fakeSessions struct {
	mu      sync.Mutex
	state   sess.State
	loginFn func(creds model.LoginRequest) error
	logouts int
}

func (f *fakeSessions) State() sess.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessions) set(st sess.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
}

func (f *fakeSessions) Login(_ context.Context, creds model.LoginRequest) error {
	if f.loginFn != nil {
		if err := f.loginFn(creds); err != nil {
			return err
		}
	}
	f.set(sess.State{Authenticated: true, Username: creds.Username, Role: model.RoleAdmin})
	return nil
}

func (f *fakeSessions) Logout(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.state = sess.State{}
}

var (
	adminState = sess.State{Authenticated: true, Username: "admin", Role: model.RoleAdmin}
	userState  = sess.State{Authenticated: true, Username: "bob", Role: "USER"}
)

// oneVisitor resolves every request to the same session.
type oneVisitor struct {
	visitor *Visitor
}

func (o oneVisitor) Resolve(*fiber.Ctx) (*Visitor, error) {
	return o.visitor, nil
}

type testApp struct {
	app      *fiber.App
	sessions *fakeSessions
	coupons  *mockCouponService
	images   *mockImageService
	csrf     string
}

func newTestApp(t *testing.T, st sess.State) *testApp {
	t.Helper()

	sessions := &fakeSessions{state: st}
	coupons := &mockCouponService{}
	images := &mockImageService{}
	imageCache := newTestCache(t)

	view := &View{AppName: "Coupons", Flash: NewFlash(session.New())}
	app := fiber.New(fiber.Config{Views: stubViews{}})
	Register(app, Handlers{
		Visitors: oneVisitor{visitor: &Visitor{ID: "test", Sessions: sessions}},
		View:     view,
		Auth:     NewAuthHandler(view),
		Pages:    NewPageHandler(view),
		Coupons:  NewCouponHandler(view, coupons, images),
		Images:   NewImageHandler(view, images, imageCache),
		Health:   NewHealthHandler(nil, nil),
	})

	return &testApp{app: app, sessions: sessions, coupons: coupons, images: images}
}

// csrfToken returns the form token the console issues to this test's browser.
func (a *testApp) csrfToken(t *testing.T) string {
	t.Helper()
	if a.csrf == "" {
		resp, _ := a.send(t, httptest.NewRequest(http.MethodGet, "/unauthorized", nil))
		a.csrf = cookieValue(resp, CSRFCookie)
		require.NotEmpty(t, a.csrf, "console issues a csrf cookie")
	}
	return a.csrf
}

// do sends req as the console's own pages would, echoing the csrf token on
// state-changing requests.
func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	if !safeMethod(req.Method) {
		tok := a.csrfToken(t)
		req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
		req.Header.Set(CSRFHeader, tok)
	}
	return a.send(t, req)
}

// send delivers req unchanged.
func (a *testApp) send(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	return a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
