package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/model"
	"github.com/fairyhunter13/coupon-console/internal/token"
)

// State is the reactive projection of the session.
// Authenticated implies Username is set. Loading is true only until Init completes.
type State struct {
	Authenticated bool
	Username      string
	Role          string
	Loading       bool
}

// HasRole reports whether the session carries role.
func (s State) HasRole(role string) bool {
	return s.Authenticated && s.Role == role
}

// IsAdmin reports whether the session carries the admin role.
func (s State) IsAdmin() bool {
	return s.HasRole(model.RoleAdmin)
}

// Authenticator is the backend login call.
type Authenticator interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error)
}

// Manager owns the session state of one token slot. Create one per console
// visitor (or per test); there is no package-level instance.
type Manager struct {
	store     token.Store
	evaluator *Evaluator
	auth      Authenticator

	initOnce sync.Once
	// syncMu orders store writes of Init, Login and Logout.
	syncMu sync.Mutex

	mu          sync.RWMutex
	state       State
	nextID      int
	subscribers map[int]func(State)
}

// NewManager returns a manager in the loading state.
func NewManager(store token.Store, evaluator *Evaluator, auth Authenticator) *Manager {
	return &Manager{
		store:       store,
		evaluator:   evaluator,
		auth:        auth,
		state:       State{Loading: true},
		subscribers: make(map[int]func(State)),
	}
}

// Init synchronizes with the persisted token. Only the first call has any
// effect; Loading is false afterwards whatever the outcome. A Login or Logout
// that settles the state first wins and Init leaves it alone.
func (m *Manager) Init(ctx context.Context) {
	m.initOnce.Do(func() {
		m.syncMu.Lock()
		defer m.syncMu.Unlock()

		if !m.State().Loading {
			log.Debug().Msg("session settled before sync, keeping it")
			return
		}

		next := State{}

		user, err := m.evaluator.Current(ctx)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("session sync failed, starting signed out")
		case user != nil:
			next = State{Authenticated: true, Username: user.Username, Role: user.Role}
			log.Info().Str("username", user.Username).Str("role", user.Role).Msg("session restored")
		default:
			log.Debug().Msg("no stored session")
		}

		m.set(next)
	})
}

// Login authenticates against the backend and, on success, persists the token
// and switches the state in one step. On failure the prior state is kept and an
// *AuthenticationError (or a transport error) is returned.
func (m *Manager) Login(ctx context.Context, creds model.LoginRequest) error {
	if strings.TrimSpace(creds.Username) == "" || strings.TrimSpace(creds.Password) == "" {
		return authError("Username and password are required")
	}

	env, err := m.auth.Login(ctx, creds)
	if err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return authError(apiErr.Message)
		}
		return err
	}
	if !env.Success || env.Data.Token == "" {
		return authError(env.Message)
	}

	username := env.Data.Username
	if username == "" {
		username = creds.Username
	}

	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	if err := m.store.Set(ctx, env.Data.Token); err != nil {
		return err
	}

	m.set(State{Authenticated: true, Username: username, Role: env.Data.Role})
	log.Info().Str("username", username).Str("role", env.Data.Role).Msg("signed in")
	return nil
}

// Logout clears the stored token and resets the state. It never fails; a store
// error is logged and the in-memory state is reset regardless.
func (m *Manager) Logout(ctx context.Context) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	if err := m.store.Remove(ctx); err != nil {
		log.Error().Err(err).Msg("failed to remove stored token on logout")
	}

	m.mu.RLock()
	was := m.state
	m.mu.RUnlock()

	m.set(State{Loading: false})
	if was.Authenticated {
		log.Info().Str("username", was.Username).Msg("signed out")
	}
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn to receive every new state. The returned func unregisters it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *Manager) set(next State) {
	m.mu.Lock()
	// Once loaded, never loading again.
	next.Loading = false
	m.state = next
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
