// Package guard decides whether a gated view may render for the current session.
package guard

import (
	"github.com/fairyhunter13/coupon-console/internal/nav"
	"github.com/fairyhunter13/coupon-console/internal/session"
)

// Outcome is the guard's verdict for one navigation.
type Outcome int

const (
	// Wait means the session is still loading; render a neutral placeholder.
	Wait Outcome = iota
	// Allow means the protected content may render.
	Allow
	// RedirectLogin means the visitor must sign in first.
	RedirectLogin
	// RedirectUnauthorized means the visitor lacks the required role.
	RedirectUnauthorized
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Decision is an outcome plus where to go for redirects.
type Decision struct {
	Outcome Outcome
	// Target is the redirect location; empty for Wait and Allow.
	Target string
}

// Decide is the pure guard rule. An empty requiredRole admits any signed-in user.
func Decide(s session.State, location, requiredRole string) Decision {
	switch {
	case s.Loading:
		return Decision{Outcome: Wait}
	case !s.Authenticated || s.Username == "":
		return Decision{Outcome: RedirectLogin, Target: nav.LoginRedirect(location)}
	case requiredRole != "" && s.Role != requiredRole:
		return Decision{Outcome: RedirectUnauthorized, Target: nav.UnauthorizedPath}
	default:
		return Decision{Outcome: Allow}
	}
}

// StateSource provides the current session state.
type StateSource interface {
	State() session.State
}

// Guard applies Decide against a live session and performs the redirect.
// It keeps no state between checks.
type Guard struct {
	sessions StateSource
}

// New returns a guard reading from sessions.
func New(sessions StateSource) *Guard {
	return &Guard{sessions: sessions}
}

// Check evaluates the view currently active in router and navigates away when denied.
func (g *Guard) Check(router nav.Router, requiredRole string) Decision {
	d := Decide(g.sessions.State(), router.Location(), requiredRole)
	if d.Target != "" {
		router.NavigateTo(d.Target)
	}
	return d
}
