// Package bootstrap assembles the shared core used by both the console and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/config"
	"github.com/fairyhunter13/coupon-console/internal/guard"
	"github.com/fairyhunter13/coupon-console/internal/nav"
	"github.com/fairyhunter13/coupon-console/internal/repository"
	"github.com/fairyhunter13/coupon-console/internal/service"
	"github.com/fairyhunter13/coupon-console/internal/session"
	"github.com/fairyhunter13/coupon-console/internal/token"
	"github.com/fairyhunter13/coupon-console/internal/validator"
	"github.com/fairyhunter13/coupon-console/pkg/database"
)

// connectRetries is how often a database-backed token store retries its first connection.
const connectRetries = 5

// TokenBackend is an opened token store plus what it needs at runtime.
type TokenBackend struct {
	// Store is the slot named by TOKEN_KEY.
	Store token.Store
	// Open returns the slot for key on the same backend, one per console visitor.
	Open func(key string) (token.Store, error)
	// Checks are the health checks of the backing service, keyed by name.
	Checks map[string]func(ctx context.Context) error
	// Close releases connections; it is never nil.
	Close func()
}

// OpenTokenStore builds the token store selected by cfg.Token.Store.
func OpenTokenStore(ctx context.Context, cfg *config.Config) (*TokenBackend, error) {
	noop := func() {}

	switch cfg.Token.Store {
	case config.TokenStoreMemory:
		return &TokenBackend{
			Store: token.NewMemoryStore(),
			Open:  func(string) (token.Store, error) { return token.NewMemoryStore(), nil },
			Close: noop,
		}, nil

	case config.TokenStoreFile:
		store, err := token.NewFileStore(cfg.Token.File, cfg.Token.Key)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", store.Path()).Msg("using file token store")
		dir := filepath.Dir(store.Path())
		return &TokenBackend{
			Store: store,
			Open: func(key string) (token.Store, error) {
				return token.NewFileStore(filepath.Join(dir, key), key)
			},
			Close: noop,
		}, nil

	case config.TokenStoreRedis:
		client, err := database.NewRedis(ctx, database.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return &TokenBackend{
			Store: repository.NewRedisTokenStore(client, cfg.Token.Key),
			Open: func(key string) (token.Store, error) {
				return repository.NewRedisTokenStore(client, key), nil
			},
			Checks: map[string]func(context.Context) error{
				"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
			},
			Close: func() { _ = client.Close() },
		}, nil

	case config.TokenStorePostgres:
		pool, err := database.NewPool(ctx, cfg.DB.DSN(), connectRetries)
		if err != nil {
			return nil, err
		}
		store := repository.NewPostgresTokenStore(pool, cfg.Token.Key)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &TokenBackend{
			Store: store,
			Open: func(key string) (token.Store, error) {
				return repository.NewPostgresTokenStore(pool, key), nil
			},
			Checks: map[string]func(context.Context) error{"postgres": pool.Ping},
			Close:  pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.Token.Store)
	}
}

// API is the part of the core that does not depend on who is signed in.
type API struct {
	Client  *apiclient.Client
	Auth    *apiclient.AuthAPI
	Coupons *service.CouponService
	Images  *service.ImageService
}

// NewAPI builds the backend client and services. store is the token slot used
// when a request context carries none.
func NewAPI(cfg *config.Config, store token.Store, router nav.Router) (*API, error) {
	client, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.URL,
		Timeout: cfg.API.Timeout,
	}, store, router)
	if err != nil {
		return nil, err
	}

	return &API{
		Client:  client,
		Auth:    apiclient.NewAuthAPI(client),
		Coupons: service.NewCouponService(client, validator.New()),
		Images:  service.NewImageService(client, cfg.Images.MaxUploadBytes()),
	}, nil
}

// Core is one session on top of the API, as used by the CLI.
type Core struct {
	*API
	Sessions *session.Manager
	Guard    *guard.Guard
}

// NewCore wires the client, session manager and guard around store. router is
// the fallback navigation target for 401 handling.
func NewCore(cfg *config.Config, store token.Store, router nav.Router) (*Core, error) {
	api, err := NewAPI(cfg, store, router)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(store, session.NewEvaluator(store, time.Now), api.Auth)
	api.Client.OnUnauthorized(sessions.Logout)

	return &Core{
		API:      api,
		Sessions: sessions,
		Guard:    guard.New(sessions),
	}, nil
}
