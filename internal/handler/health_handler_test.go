package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPool implements a minimal interface for testing health checks
type mockPool struct {
	pingErr error
}

func (m *mockPool) Ping(ctx context.Context) error {
	return m.pingErr
}

type visitorCount int

func (n visitorCount) Len() int { return int(n) }

func TestHealthHandler_Check_Healthy(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(map[string]Pinger{"postgres": &mockPool{}}, visitorCount(3))
	app.Get("/health", handler.Check)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"healthy"`)
	assert.Contains(t, string(body), `"visitors":3`)
}

func TestHealthHandler_Check_NoDependencies(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(nil, nil)
	app.Get("/health", handler.Check)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthHandler_Check_Unhealthy(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(map[string]Pinger{
		"postgres": &mockPool{},
		"redis": PingFunc(func(context.Context) error {
			return errors.New("connection refused")
		}),
	}, nil)
	app.Get("/health", handler.Check)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"unhealthy"`)
	assert.Contains(t, string(body), `"failed":["redis"]`)
	assert.NotContains(t, string(body), "connection refused", "Error details should not be exposed")
}
