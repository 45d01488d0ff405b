package apiclient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/token"
)

const (
	AuthorizationHeader = "Authorization"
	RequestIDHeader     = "X-Request-ID"
)

// bearerTransport reads the token store before every request and attaches the
// token when present. A store attached to the request context wins over the
// transport's own. A store failure never fails the request: it is sent
// unauthenticated and the backend decides.
type bearerTransport struct {
	store token.Store
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	tok, err := token.FromContext(req.Context(), t.store).Get(req.Context())
	if err != nil {
		log.Warn().Err(err).Str("path", req.URL.Path).Msg("token store unreadable, sending request without credentials")
	}
	if tok != "" {
		req.Header.Set(AuthorizationHeader, "Bearer "+tok)
	} else {
		req.Header.Del(AuthorizationHeader)
	}

	return t.base.RoundTrip(req)
}
