package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/model"
	"github.com/fairyhunter13/coupon-console/internal/token"
)

// mockAuthenticator is a mock implementation of Authenticator.
type mockAuthenticator struct {
	loginFn func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error)
	calls   int
}

func (m *mockAuthenticator) Login(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
	m.calls++
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return &model.Envelope[model.LoginResponse]{Success: false, Message: "not configured"}, nil
}

func newTestManager(store token.Store, auth Authenticator) *Manager {
	return NewManager(store, NewEvaluator(store, fixedClock), auth)
}

func TestManager_StartsLoading(t *testing.T) {
	m := newTestManager(token.NewMemoryStore(), &mockAuthenticator{})

	assert.True(t, m.State().Loading)
	assert.False(t, m.State().Authenticated)
}

func TestManager_Init_RestoresSession(t *testing.T) {
	store := token.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), mint(t, "alice", "ADMIN", fixedNow.Add(time.Hour))))
	m := newTestManager(store, &mockAuthenticator{})

	m.Init(context.Background())

	st := m.State()
	assert.False(t, st.Loading)
	assert.True(t, st.Authenticated)
	assert.Equal(t, "alice", st.Username)
	assert.True(t, st.IsAdmin())
}

func TestManager_Init_ExpiredTokenSignsOut(t *testing.T) {
	store := token.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), mint(t, "alice", "ADMIN", fixedNow.Add(-time.Second))))
	m := newTestManager(store, &mockAuthenticator{})

	m.Init(context.Background())

	st := m.State()
	assert.False(t, st.Loading)
	assert.False(t, st.Authenticated)
	got, _ := store.Get(context.Background())
	assert.Empty(t, got)
}

func TestManager_Init_StoreFailureStillFinishesLoading(t *testing.T) {
	m := newTestManager(errStore{}, &mockAuthenticator{})

	m.Init(context.Background())

	assert.False(t, m.State().Loading)
	assert.False(t, m.State().Authenticated)
}

func TestManager_Init_RunsOnce(t *testing.T) {
	store := token.NewMemoryStore()
	m := newTestManager(store, &mockAuthenticator{})
	m.Init(context.Background())

	// A token appearing later is not picked up by a second Init.
	require.NoError(t, store.Set(context.Background(), mint(t, "alice", "ADMIN", fixedNow.Add(time.Hour))))
	m.Init(context.Background())

	assert.False(t, m.State().Authenticated)
}

func TestManager_Login_Success(t *testing.T) {
	store := token.NewMemoryStore()
	raw := mint(t, "admin", "ADMIN", fixedNow.Add(time.Hour))
	auth := &mockAuthenticator{
		loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
			assert.Equal(t, "admin", req.Username)
			return &model.Envelope[model.LoginResponse]{
				Success: true,
				Data:    model.LoginResponse{Token: raw, Username: "admin", Role: "ADMIN"},
			}, nil
		},
	}
	m := newTestManager(store, auth)
	m.Init(context.Background())

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "secret"})

	require.NoError(t, err)
	got, _ := store.Get(context.Background())
	assert.Equal(t, raw, got)

	st := m.State()
	assert.True(t, st.Authenticated)
	assert.Equal(t, "admin", st.Username)
	assert.Equal(t, "ADMIN", st.Role)

	// The evaluator sees the same identity the token encodes.
	user, err := NewEvaluator(store, fixedClock).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, st.Username, user.Username)
	assert.Equal(t, st.Role, user.Role)
}

func TestManager_Login_RejectedKeepsPriorState(t *testing.T) {
	store := token.NewMemoryStore()
	auth := &mockAuthenticator{
		loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
			return &model.Envelope[model.LoginResponse]{Success: false, Message: "Invalid credentials"}, nil
		},
	}
	m := newTestManager(store, auth)
	m.Init(context.Background())
	before := m.State()

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "wrong"})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.Equal(t, before, m.State())
	got, _ := store.Get(context.Background())
	assert.Empty(t, got, "token store unchanged")
}

func TestManager_Login_HTTP401BecomesAuthenticationError(t *testing.T) {
	store := token.NewMemoryStore()
	prior := mint(t, "alice", "ADMIN", fixedNow.Add(time.Hour))
	require.NoError(t, store.Set(context.Background(), prior))
	auth := &mockAuthenticator{
		loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
			return nil, &apiclient.Error{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
		},
	}
	m := newTestManager(store, auth)
	m.Init(context.Background())

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "wrong"})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	got, _ := store.Get(context.Background())
	assert.Equal(t, prior, got)
	assert.Equal(t, "alice", m.State().Username)
}

func TestManager_Login_TransportErrorPropagates(t *testing.T) {
	transportErr := &apiclient.Error{Message: "connection refused", Err: errors.New("dial tcp: connection refused")}
	auth := &mockAuthenticator{
		loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
			return nil, transportErr
		},
	}
	m := newTestManager(token.NewMemoryStore(), auth)

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "secret"})

	assert.ErrorIs(t, err, transportErr)
	var authErr *AuthenticationError
	assert.False(t, errors.As(err, &authErr))
}

func TestManager_Login_BlankCredentials(t *testing.T) {
	auth := &mockAuthenticator{}
	m := newTestManager(token.NewMemoryStore(), auth)

	err := m.Login(context.Background(), model.LoginRequest{Username: "  ", Password: "x"})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, auth.calls, "backend must not be called")
}

func TestManager_Login_EmptyMessageFallsBack(t *testing.T) {
	auth := &mockAuthenticator{
		loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
			return &model.Envelope[model.LoginResponse]{Success: false}, nil
		},
	}
	m := newTestManager(token.NewMemoryStore(), auth)

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "x"})

	assert.EqualError(t, err, "Login failed")
}

func TestManager_Logout(t *testing.T) {
	store := token.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), mint(t, "alice", "ADMIN", fixedNow.Add(time.Hour))))
	m := newTestManager(store, &mockAuthenticator{})
	m.Init(context.Background())
	require.True(t, m.State().Authenticated)

	m.Logout(context.Background())
	m.Logout(context.Background())

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, State{}, m.State())
}

func TestManager_LogoutWithFailingStoreStillResets(t *testing.T) {
	m := newTestManager(errStore{}, &mockAuthenticator{})

	assert.NotPanics(t, func() { m.Logout(context.Background()) })
	assert.False(t, m.State().Authenticated)
	assert.False(t, m.State().Loading)
}

func TestManager_Subscribe(t *testing.T) {
	store := token.NewMemoryStore()
	m := newTestManager(store, &mockAuthenticator{
		loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
			return &model.Envelope[model.LoginResponse]{
				Success: true,
				Data:    model.LoginResponse{Token: "t", Username: "bob", Role: "USER"},
			}, nil
		},
	})

	var mu sync.Mutex
	var seen []State
	unsubscribe := m.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	m.Init(context.Background())
	require.NoError(t, m.Login(context.Background(), model.LoginRequest{Username: "bob", Password: "pw"}))
	unsubscribe()
	m.Logout(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.False(t, seen[0].Authenticated)
	assert.False(t, seen[0].Loading)
	assert.Equal(t, State{Authenticated: true, Username: "bob", Role: "USER"}, seen[1])
	assert.False(t, seen[1].IsAdmin())
}

// gatedStore is a MemoryStore whose first Get reads the slot and then blocks
// until release is closed.
type gatedStore struct {
	token.MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) Get(ctx context.Context) (string, error) {
	tok, err := g.MemoryStore.Get(ctx)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return tok, err
}

func TestManager_LoginDuringInitIsNotOverwritten(t *testing.T) {
	store := newGatedStore()
	tok := mint(t, "alice", "ADMIN", fixedNow.Add(time.Hour))
	auth := &mockAuthenticator{loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
		return &model.Envelope[model.LoginResponse]{Success: true, Data: model.LoginResponse{Token: tok, Username: "alice", Role: "ADMIN"}}, nil
	}}
	m := newTestManager(store, auth)

	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		m.Init(context.Background())
	}()
	<-store.entered

	loginErr := make(chan error, 1)
	go func() { loginErr <- m.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "pw"}) }()

	// Give the login a chance to finish its backend call before the sync reads on.
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	require.NoError(t, <-loginErr)
	<-initDone

	st := m.State()
	assert.True(t, st.Authenticated)
	assert.Equal(t, "alice", st.Username)
	assert.False(t, st.Loading)
	got, err := store.MemoryStore.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}

func TestManager_InitAfterLoginKeepsSession(t *testing.T) {
	tok := mint(t, "alice", "ADMIN", fixedNow.Add(time.Hour))
	auth := &mockAuthenticator{loginFn: func(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
		return &model.Envelope[model.LoginResponse]{Success: true, Data: model.LoginResponse{Token: tok, Username: "alice", Role: "ADMIN"}}, nil
	}}
	m := newTestManager(token.NewMemoryStore(), auth)

	require.NoError(t, m.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "pw"}))
	m.Init(context.Background())

	assert.True(t, m.State().IsAdmin())
}
