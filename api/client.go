// Package api is the client for the restaurant's REST backend: menu, tables and orders.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
)

// Error is a non-2xx answer from the backend. Message is the server's
// "message" field when it sent one.
type Error struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

type Client struct {
	http *resty.Client
	log  *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetHeader("Accept", "application/json"),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// tokenExpired reports whether token is a JWT whose exp is in the past.
// Tokens that do not parse as JWTs are never considered expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token := c.Token()
	if token != "" && tokenExpired(token, time.Now()) {
		return nil, ErrSessionExpired
	}
	r := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if token != "" {
		r.SetAuthToken(token)
	}
	return r, nil
}

// do sends one request and returns the raw body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, configure ...func(*resty.Request)) ([]byte, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for _, f := range configure {
		f(r)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("took", resp.Time()),
	)
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &Error{
			Status:  resp.StatusCode(),
			Message: serverMessage(resp.Body()),
			Method:  method,
			Path:    path,
		}
	}
	return resp.Body(), nil
}

func serverMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	var s string
	_ = json.Unmarshal(env.Error, &s)
	return s
}
