// Package api is the HTTP client for the chatbot platform backend.
package api

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

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/logger"
)

const (
	// DefaultTimeout bounds every call except chat.
	DefaultTimeout = 180 * time.Second
	// DefaultChatTimeout bounds a chat message round trip.
	DefaultChatTimeout = 90 * time.Second
)

// Config holds client settings.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	ChatTimeout time.Duration
	UserAgent   string
	HTTPClient  *http.Client // optional, for tests
	Observer    CallObserver // optional
}

// CallInfo describes one finished request.
type CallInfo struct {
	Method   string
	Path     string
	Status   int // 0 when no response arrived
	Duration time.Duration
	Err      error
}

// CallObserver is told about every finished request.
type CallObserver func(CallInfo)

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

// AuthErrorHandler observes 401 and 403 responses before they are returned.
type AuthErrorHandler func(*APIError)

// Client talks to the backend REST API.
type Client struct {
	baseURL     string
	http        *http.Client
	chatTimeout time.Duration
	userAgent   string
	observer    CallObserver
	log         zerolog.Logger

	mu          sync.RWMutex
	token       TokenSource
	onAuthError AuthErrorHandler
}

// New creates a client for cfg.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = DefaultChatTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "botdesk"
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        hc,
		chatTimeout: cfg.ChatTimeout,
		userAgent:   cfg.UserAgent,
		observer:    cfg.Observer,
		log:         logger.WithComponent("api"),
	}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource installs the bearer token provider.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.token = ts
	c.mu.Unlock()
}

// OnAuthError installs the 401/403 observer.
func (c *Client) OnAuthError(h AuthErrorHandler) {
	c.mu.Lock()
	c.onAuthError = h
	c.mu.Unlock()
}

// envelope is the common response wrapper of every endpoint.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	ErrorType  string          `json:"errorType"`
	RedirectTo string          `json:"redirectTo"`
	UserEmail  string          `json:"userEmail"`
}

// request describes one call.
type request struct {
	method      string
	path        string
	query       interface{} // struct encoded with go-querystring
	body        interface{} // JSON encoded
	raw         io.Reader   // pre-encoded body, used for multipart
	contentType string
	out         interface{}
}

func (c *Client) do(ctx context.Context, r request) (env *envelope, err error) {
	start := time.Now()
	status := 0
	if c.observer != nil {
		defer func() {
			c.observer(CallInfo{Method: r.method, Path: r.path, Status: status, Duration: time.Since(start), Err: err})
		}()
	}

	u, err := url.Parse(c.baseURL + r.path)
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if r.query != nil {
		v, err := query.Values(r.query)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query: %w", err)
		}
		u.RawQuery = v.Encode()
	}

	body := r.raw
	contentType := r.contentType
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("ngrok-skip-browser-warning", "true")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.mu.RLock()
	ts, onAuthError := c.token, c.onAuthError
	c.mu.RUnlock()
	if ts != nil {
		if token := ts(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", r.method).Str("path", r.path).Msg("Request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", r.method, r.path, apperrors.ErrRequestTimeout)
		}
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("Request completed")

	env = &envelope{}
	decodeErr := json.Unmarshal(data, env)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || decodeErr != nil || !env.Success {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Detail:     env.Error,
			ErrorType:  env.ErrorType,
			RedirectTo: env.RedirectTo,
			UserEmail:  env.UserEmail,
		}
		if decodeErr != nil && apiErr.Message == "" && apiErr.Detail == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && onAuthError != nil {
			onAuthError(apiErr)
		}
		return env, apiErr
	}

	if r.out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, r.out); err != nil {
			return env, fmt.Errorf("failed to decode %s %s response: %w", r.method, r.path, err)
		}
	}

	return env, nil
}

// APIError is a non-success response from the backend.
type APIError struct {
	StatusCode int
	Message    string // the envelope's message field
	Detail     string // the envelope's error field
	ErrorType  string
	RedirectTo string
	UserEmail  string
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Text()
	if msg == "" {
		msg = "request failed"
	}
	if e.ErrorType != "" {
		return fmt.Sprintf("%s (%d %s)", msg, e.StatusCode, e.ErrorType)
	}
	return fmt.Sprintf("%s (%d)", msg, e.StatusCode)
}

// Text is the human-readable message, preferring message over error.
func (e *APIError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

// Is maps backend error types onto the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case apperrors.ErrSessionExpired:
		return e.ErrorType == "SESSION_EXPIRED"
	case apperrors.ErrTokenExpired:
		return e.ErrorType == "TOKEN_EXPIRED"
	case apperrors.ErrInvalidToken:
		return e.ErrorType == "INVALID_TOKEN"
	case apperrors.ErrAccountDisabled:
		return e.ErrorType == "ACCOUNT_DISABLED"
	case apperrors.ErrEmailNotVerified:
		return e.ErrorType == "EMAIL_NOT_VERIFIED"
	case apperrors.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case apperrors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Message extracts a user-facing message from err, or returns fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if t := apiErr.Text(); t != "" {
			return t
		}
	}
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return fallback
}
