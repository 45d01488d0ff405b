package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/bootstrap"
	"github.com/fairyhunter13/coupon-console/internal/cache"
	"github.com/fairyhunter13/coupon-console/internal/config"
	"github.com/fairyhunter13/coupon-console/internal/handler"
	"github.com/fairyhunter13/coupon-console/internal/logging"
	"github.com/fairyhunter13/coupon-console/internal/token"
	"github.com/fairyhunter13/coupon-console/web"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Setup(cfg.Log, os.Stdout)

	ctx := context.Background()

	backend, err := bootstrap.OpenTokenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Token.Store).Msg("failed to open token store")
	}

	// Each request carries its own router and its visitor's token slot, so
	// the client's own slot only serves requests made outside a visitor.
	api, err := bootstrap.NewAPI(cfg, token.NewMemoryStore(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create api client")
	}
	api.Client.OnUnauthorized(handler.ExpireVisitor)

	visitors, err := handler.NewVisitors(handler.VisitorsConfig{
		Size: cfg.Server.MaxVisitors,
		Open: func(id string) (token.Store, error) {
			return backend.Open(cfg.Token.Key + "." + id)
		},
		Auth:         api.Auth,
		Now:          time.Now,
		SecureCookie: cfg.Server.SecureCookies,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create visitor sessions")
	}

	imageCache, err := cache.NewImageCache(cfg.Images.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create image cache")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Views:        web.NewEngine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    int(cfg.Images.MaxUploadBytes()) + 1<<20, // upload limit plus form overhead
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	view := &handler.View{
		AppName: cfg.App.Name,
		Flash: handler.NewFlash(session.New(session.Config{
			CookieHTTPOnly: true,
			CookieSecure:   cfg.Server.SecureCookies,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		})),
	}

	checks := make(map[string]handler.Pinger, len(backend.Checks))
	for name, fn := range backend.Checks {
		checks[name] = handler.PingFunc(fn)
	}

	handler.Register(app, handler.Handlers{
		Visitors:      visitors,
		View:          view,
		Auth:          handler.NewAuthHandler(view),
		Pages:         handler.NewPageHandler(view),
		Coupons:       handler.NewCouponHandler(view, api.Coupons, api.Images),
		Images:        handler.NewImageHandler(view, api.Images, imageCache),
		Health:        handler.NewHealthHandler(checks, visitors),
		SecureCookies: cfg.Server.SecureCookies,
	})

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.Server.Addr()).Str("api", cfg.API.URL).Msg("starting console")
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down console...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close the token store AFTER server shutdown (even if shutdown timed out)
	backend.Close()
	log.Info().Msg("console stopped")
}
