package handler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/model"
	sess "github.com/fairyhunter13/coupon-console/internal/session"
	"github.com/fairyhunter13/coupon-console/internal/token"
)

// Cookie and form names of the console.
const (
	VisitorCookie  = "console_visitor"
	CSRFCookie     = "console_csrf"
	CSRFFormField  = "_csrf"
	CSRFHeader     = csrf.HeaderName
	CSRFContextKey = "csrf_token"
)

const (
	visitorCookieTTL = 30 * 24 * time.Hour
	csrfTokenTTL     = 12 * time.Hour
)

// Visitor is the session of one browser.
type Visitor struct {
	ID       string
	Sessions SessionManager
	// Store is the visitor's token slot. Nil leaves the client's own slot in use.
	Store token.Store
}

// VisitorResolver finds the visitor behind a request.
type VisitorResolver interface {
	Resolve(c *fiber.Ctx) (*Visitor, error)
}

type visitorKey struct{}

// Identify attaches the requesting visitor to the user context. Handlers read
// its session through sessionsOf and API calls use its token slot.
func Identify(visitors VisitorResolver, view *View) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := visitors.Resolve(c)
		if err != nil {
			log.Error().Err(err).Msg("failed to resolve visitor session")
			return view.Render(c, "error", fiber.StatusServiceUnavailable, fiber.Map{"message": "Sessions are unavailable. Please try again."})
		}

		ctx := context.WithValue(c.UserContext(), visitorKey{}, v)
		if v.Store != nil {
			ctx = token.WithStore(ctx, v.Store)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func visitorFrom(ctx context.Context) *Visitor {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(visitorKey{}).(*Visitor)
	return v
}

// sessionsOf returns the session of the requesting visitor.
func sessionsOf(c *fiber.Ctx) SessionManager {
	if v := visitorFrom(c.UserContext()); v != nil {
		return v.Sessions
	}
	return anonymous{}
}

// anonymous is the session seen by requests that no visitor was attached to.
type anonymous struct{}

func (anonymous) State() sess.State { return sess.State{} }

func (anonymous) Login(context.Context, model.LoginRequest) error {
	return &sess.AuthenticationError{Message: "Sessions are unavailable"}
}

func (anonymous) Logout(context.Context) {}

// ExpireVisitor signs out the visitor of ctx. Register it with
// apiclient.Client.OnUnauthorized so a 401 resets the right session.
func ExpireVisitor(ctx context.Context) {
	if v := visitorFrom(ctx); v != nil {
		v.Sessions.Logout(ctx)
	}
}

// VisitorsConfig configures NewVisitors.
type VisitorsConfig struct {
	// Size is how many visitors are kept; the least recently seen goes first.
	Size int
	// Open returns the token slot for a visitor id.
	Open func(id string) (token.Store, error)
	Auth sess.Authenticator
	Now  sess.Clock
	// SecureCookie marks the visitor cookie HTTPS-only.
	SecureCookie bool
}

type visitorEntry struct {
	visitor *Visitor
	manager *sess.Manager
}

// Visitors keeps one session per browser, keyed by a random id held in an
// HTTP-only cookie. A visitor seen for the first time starts from its
// persisted token slot, which is empty for a new id.
type Visitors struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *visitorEntry]
	cfg     VisitorsConfig
}

// NewVisitors creates the registry.
func NewVisitors(cfg VisitorsConfig) (*Visitors, error) {
	if cfg.Open == nil || cfg.Auth == nil {
		return nil, fmt.Errorf("visitors: Open and Auth are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	entries, err := lru.New[string, *visitorEntry](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("create visitor cache: %w", err)
	}
	return &Visitors{entries: entries, cfg: cfg}, nil
}

// Resolve returns the visitor named by the request cookie, issuing a new id
// when the cookie is missing or malformed. The session is synchronized with
// its token slot before Resolve returns.
func (vs *Visitors) Resolve(c *fiber.Ctx) (*Visitor, error) {
	id := c.Cookies(VisitorCookie)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	entry, err := vs.get(id)
	if err != nil {
		return nil, err
	}
	entry.manager.Init(c.UserContext())

	c.Cookie(&fiber.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(visitorCookieTTL),
		Secure:   vs.cfg.SecureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return entry.visitor, nil
}

func (vs *Visitors) get(id string) (*visitorEntry, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if entry, ok := vs.entries.Get(id); ok {
		return entry, nil
	}

	store, err := vs.cfg.Open(id)
	if err != nil {
		return nil, fmt.Errorf("open token slot: %w", err)
	}
	manager := sess.NewManager(store, sess.NewEvaluator(store, vs.cfg.Now), vs.cfg.Auth)
	entry := &visitorEntry{
		visitor: &Visitor{ID: id, Sessions: manager, Store: store},
		manager: manager,
	}
	vs.entries.Add(id, entry)
	log.Debug().Int("visitors", vs.entries.Len()).Msg("new console visitor")
	return entry, nil
}

// Len returns the number of visitors kept.
func (vs *Visitors) Len() int {
	return vs.entries.Len()
}

// CSRF rejects state-changing requests sent from another origin, and those
// that do not echo the token of the visitor's csrf cookie in the form field or
// the X-Csrf-Token header.
func CSRF(view *View, secure bool) fiber.Handler {
	reject := func(c *fiber.Ctx, err error) error {
		log.Warn().Err(err).
			Str("path", c.Path()).
			Str("origin", c.Get(fiber.HeaderOrigin)).
			Msg("rejected cross-site form request")
		return view.Render(c, "error", fiber.StatusForbidden, fiber.Map{
			"message": "This form has expired or did not come from the console. Reload the page and try again.",
		})
	}

	tokens := csrf.New(csrf.Config{
		KeyLookup:      "form:" + CSRFFormField,
		CookieName:     CSRFCookie,
		CookiePath:     "/",
		CookieSecure:   secure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		Expiration:     csrfTokenTTL,
		ContextKey:     CSRFContextKey,
		Extractor:      csrfFromFormOrHeader,
		ErrorHandler:   reject,
	})

	return func(c *fiber.Ctx) error {
		if !safeMethod(c.Method()) {
			if err := sameOrigin(c); err != nil {
				return reject(c, err)
			}
		}
		return tokens(c)
	}
}

var errForeignOrigin = errors.New("request origin does not match host")

func safeMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace:
		return true
	}
	return false
}

// sameOrigin rejects a request whose Origin header names another host.
// Requests without the header are left to the token check.
func sameOrigin(c *fiber.Ctx) error {
	origin := c.Get(fiber.HeaderOrigin)
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host != c.Get(fiber.HeaderHost) {
		return errForeignOrigin
	}
	return nil
}

func csrfFromFormOrHeader(c *fiber.Ctx) (string, error) {
	if v := c.FormValue(CSRFFormField); v != "" {
		return v, nil
	}
	return csrf.CsrfFromHeader(CSRFHeader)(c)
}
