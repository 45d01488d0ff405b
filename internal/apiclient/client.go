// Package apiclient is the request pipeline every backend call goes through:
// bearer injection, envelope decoding and 401 handling.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/model"
	"github.com/fairyhunter13/coupon-console/internal/nav"
	"github.com/fairyhunter13/coupon-console/internal/token"
)

// maxErrorBody caps how much of a failed response is read looking for a message.
const maxErrorBody = 64 << 10

// Config holds the backend location and call limits.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport overrides the underlying round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Request describes one backend call. Body is JSON-encoded unless RawBody is set.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	RawBody     io.Reader
	ContentType string
	Header      http.Header

	// SkipUnauthorized disables the session-clearing side effects of a 401,
	// for calls such as login where a 401 only means "bad credentials".
	SkipUnauthorized bool
}

// Client is the configured request pipeline.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	store   token.Store
	router  nav.Router

	mu             sync.RWMutex
	onUnauthorized []func(context.Context)
}

// New builds a client. router is the fallback navigation target used when the
// request context carries no router of its own; it may be nil.
func New(cfg Config, store token.Store, router nav.Router) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}

	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &bearerTransport{store: store, base: rt},
		},
		store:  store,
		router: router,
	}, nil
}

// OnUnauthorized registers fn to run after a 401 has purged the token store.
func (c *Client) OnUnauthorized(fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// URL returns the absolute URL of an API path.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// Do sends the request and returns the raw response for any 2xx/3xx status.
// The caller owns the response body. Failures are returned as *Error.
func (c *Client) Do(ctx context.Context, r *Request) (*http.Response, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}

	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	apiErr := &Error{
		Status:  resp.StatusCode,
		Message: envelopeMessage(resp.Body),
		Err:     fmt.Errorf("request failed with status code %d", resp.StatusCode),
	}

	if resp.StatusCode == http.StatusUnauthorized && !r.SkipUnauthorized {
		c.expireSession(ctx)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Str("method", r.Method).
		Str("path", r.Path).
		Str("message", apiErr.Message).
		Msg("api call failed")

	return nil, apiErr
}

// Call sends the request and decodes the envelope. The envelope is returned as
// sent; callers must branch on Success.
func Call[T any](ctx context.Context, c *Client, r *Request) (*model.Envelope[T], error) {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	var env model.Envelope[T]
	if len(bytes.TrimSpace(body)) == 0 {
		// 204 and friends carry no envelope.
		env.Success = true
		return &env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: "invalid response from server", Err: err}
	}
	return &env, nil
}

// expireSession clears credentials and sends the active view to the login page.
// Running it twice is harmless.
func (c *Client) expireSession(ctx context.Context) {
	if err := token.FromContext(ctx, c.store).Remove(ctx); err != nil {
		log.Error().Err(err).Msg("failed to purge token after 401")
	}

	c.mu.RLock()
	hooks := append([]func(context.Context){}, c.onUnauthorized...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}

	router := nav.FromContext(ctx, c.router)
	if router == nil {
		return
	}
	if loc := router.Location(); !nav.IsLoginView(loc) {
		log.Info().Str("from", loc).Msg("session expired, redirecting to login")
		router.NavigateTo(nav.LoginPath)
	}
}

func (c *Client) newRequest(ctx context.Context, r *Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	u := c.URL(r.Path)
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var (
		body        io.Reader
		contentType = r.ContentType
	)
	switch {
	case r.RawBody != nil:
		body = r.RawBody
	case r.Body != nil:
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// envelopeMessage extracts the message field of an error envelope, if any.
func envelopeMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &env) != nil {
		return ""
	}
	return env.Message
}
