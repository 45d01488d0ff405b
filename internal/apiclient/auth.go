package apiclient

import (
	"context"
	"net/http"

	"github.com/fairyhunter13/coupon-console/internal/model"
)

// AuthAPI wraps the authentication endpoint.
type AuthAPI struct {
	client *Client
}

// NewAuthAPI returns the auth endpoint bound to client.
func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

// Login posts credentials to /auth/login.
func (a *AuthAPI) Login(ctx context.Context, req model.LoginRequest) (*model.Envelope[model.LoginResponse], error) {
	return Call[model.LoginResponse](ctx, a.client, &Request{
		Method:           http.MethodPost,
		Path:             "/auth/login",
		Body:             req,
		SkipUnauthorized: true,
	})
}
