// Package nav abstracts "which view is active" and "go to another view" so that
// the API client and the route guard can redirect without knowing the front end.
package nav

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

// Well-known view locations.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	HomePath         = "/"
)

// Router is the navigation capability of a front end.
type Router interface {
	// Location returns the currently active view, path plus optional query.
	Location() string
	// NavigateTo requests a switch to the view at path.
	NavigateTo(path string)
}

type routerKey struct{}

// WithRouter attaches a request-scoped router to ctx.
func WithRouter(ctx context.Context, r Router) context.Context {
	return context.WithValue(ctx, routerKey{}, r)
}

// FromContext returns the router attached to ctx, or fallback.
func FromContext(ctx context.Context, fallback Router) Router {
	if ctx != nil {
		if r, ok := ctx.Value(routerKey{}).(Router); ok && r != nil {
			return r
		}
	}
	return fallback
}

// IsLoginView reports whether location points at the login view.
func IsLoginView(location string) bool {
	p := location
	if u, err := url.Parse(location); err == nil {
		p = u.Path
	}
	return p == LoginPath || strings.HasPrefix(p, LoginPath+"/")
}

// LoginRedirect builds the login location that returns to from after sign-in.
func LoginRedirect(from string) string {
	if from == "" || IsLoginView(from) {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(from)
}

// SafeReturnPath returns from when it is a local absolute path, otherwise def.
func SafeReturnPath(from, def string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return def
	}
	if IsLoginView(from) {
		return def
	}
	return from
}

// Recorder is a Router for one request: it remembers the location it was created
// for and the last navigation requested while handling it.
type Recorder struct {
	mu       sync.Mutex
	location string
	target   string
}

var _ Router = (*Recorder)(nil)

// NewRecorder returns a recorder positioned at location.
func NewRecorder(location string) *Recorder {
	return &Recorder{location: location}
}

func (r *Recorder) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

func (r *Recorder) NavigateTo(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = path
}

// Target returns the pending navigation, if any.
func (r *Recorder) Target() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target, r.target != ""
}
