// Package session keeps the signed-in account, reacts to auth failures
// reported by the backend, and periodically re-validates the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
	"github.com/botdesk/botdesk/pkg/cron"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/logger"
	"github.com/botdesk/botdesk/pkg/utils"
)

const (
	// DefaultStatusInterval is how often the monitor re-checks the session.
	DefaultStatusInterval = 30 * time.Second

	// DefaultDisabledMessage is shown when the backend gives no reason.
	DefaultDisabledMessage = "You can't access the dashboard page, please contact admin"

	// ConsentVersion is the version of the cookie notice being accepted.
	ConsentVersion = "1.0"
)

// Reasons attached to SessionChanged events.
const (
	ReasonLogin           = "login"
	ReasonLogout          = "logout"
	ReasonUnauthorized    = "unauthorized"
	ReasonAccountDisabled = "account_disabled"
	ReasonTokenExpired    = "token_expired"
	ReasonInvalidToken    = "invalid_token"
	ReasonSessionExpired  = "session_expired"
	ReasonEmailUnverified = "email_not_verified"
)

// adminCriticalErrors are the only 401 messages that sign an admin out.
var adminCriticalErrors = map[string]bool{
	"Access token is required": true,
	"Invalid token":            true,
	"Token expired":            true,
	"User not found":           true,
}

// Options tunes a Manager.
type Options struct {
	StatusInterval time.Duration
	Now            func() time.Time
}

// Manager owns the session state. It installs itself as the token source and
// auth error hook of the client it is given.
type Manager struct {
	client   *api.Client
	repo     Repository
	bus      *events.Bus
	log      zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	state *State

	monitorMu sync.Mutex
	monitor   *cron.Scheduler
}

// NewManager wires a Manager to client. bus may be nil.
func NewManager(client *api.Client, repo Repository, bus *events.Bus, opts Options) *Manager {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		client:   client,
		repo:     repo,
		bus:      bus,
		log:      logger.WithComponent("session"),
		interval: opts.StatusInterval,
		now:      opts.Now,
	}
	client.SetTokenSource(m.Token)
	client.OnAuthError(m.HandleAuthError)
	return m
}

// Repository returns the backing store, for preferences.
func (m *Manager) Repository() Repository {
	return m.repo
}

// Restore loads a previously saved session.
func (m *Manager) Restore(ctx context.Context) error {
	st, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
	return nil
}

// Token returns the bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return ""
	}
	return m.state.Token
}

// Current returns the signed-in user.
func (m *Manager) Current() (api.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return api.User{}, false
	}
	return m.state.User, true
}

// IsAuthenticated reports whether a session is held.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Current()
	return ok
}

// Role returns the role of the signed-in user, RoleUser when signed out.
func (m *Manager) Role() Role {
	u, _ := m.Current()
	return RoleOf(u)
}

// Login signs in with credentials and stores the session.
func (m *Manager) Login(ctx context.Context, email, password string) (*api.User, error) {
	if err := utils.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	res, err := m.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}

	if err := m.store(ctx, State{Token: res.Token, User: res.User}); err != nil {
		return nil, err
	}
	m.log.Info().Str("email", res.User.Email).Str("role", RoleOf(res.User).String()).Msg("Signed in")
	m.publish(events.EventSessionChanged, events.SessionEvent{LoggedIn: true, Reason: ReasonLogin})
	return &res.User, nil
}

// SignInWithToken completes an external sign-in, such as the Google
// callback, which hands over only a token. The profile is fetched with it.
func (m *Manager) SignInWithToken(ctx context.Context, token string) (*api.User, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidToken
	}
	if expired, err := TokenExpired(token, m.now()); err != nil {
		return nil, err
	} else if expired {
		return nil, apperrors.ErrTokenExpired
	}

	m.mu.Lock()
	m.state = &State{Token: token}
	m.mu.Unlock()

	user, err := m.client.Me(ctx)
	if err != nil {
		m.clear(ReasonInvalidToken)
		return nil, err
	}
	if err := m.store(ctx, State{Token: token, User: *user}); err != nil {
		return nil, err
	}
	m.publish(events.EventSessionChanged, events.SessionEvent{LoggedIn: true, Reason: ReasonLogin})
	return user, nil
}

// Logout ends the session. The backend call is best-effort; local state is
// always cleared.
func (m *Manager) Logout(ctx context.Context) error {
	if m.Token() != "" {
		if err := m.client.Logout(ctx); err != nil {
			m.log.Debug().Err(err).Msg("Backend logout failed")
		}
	}
	m.clear(ReasonLogout)
	return nil
}

// UpdateUser replaces the stored profile.
func (m *Manager) UpdateUser(ctx context.Context, user api.User) error {
	m.mu.Lock()
	if m.state == nil {
		m.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
	m.state.User = user
	st := *m.state
	m.mu.Unlock()

	if err := m.repo.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Validate checks the stored token locally, then with the backend. Session
// terminating answers clear the session; any other failure keeps it.
func (m *Manager) Validate(ctx context.Context) (*api.User, error) {
	token := m.Token()
	if token == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	expired, err := TokenExpired(token, m.now())
	if err != nil {
		m.clear(ReasonInvalidToken)
		return nil, err
	}
	if expired {
		m.clear(ReasonTokenExpired)
		return nil, apperrors.ErrTokenExpired
	}

	user, err := m.client.Me(ctx)
	if err != nil {
		if reason, ok := terminalReason(err); ok {
			m.clear(reason)
		}
		return nil, err
	}

	// The session may have been cleared while the request was in flight.
	if err := m.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// terminalReason reports whether err is one of the /me answers that end a
// session.
func terminalReason(err error) (string, bool) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		switch apiErr.ErrorType {
		case "SESSION_EXPIRED":
			return ReasonSessionExpired, true
		case "TOKEN_EXPIRED":
			return ReasonTokenExpired, true
		case "INVALID_TOKEN":
			return ReasonInvalidToken, true
		case "EMAIL_NOT_VERIFIED":
			return ReasonEmailUnverified, true
		}
	case http.StatusForbidden:
		if apiErr.ErrorType == "ACCOUNT_DISABLED" {
			return ReasonAccountDisabled, true
		}
	}
	return "", false
}

// HandleAuthError is the client hook for 401 and 403 answers.
func (m *Manager) HandleAuthError(e *api.APIError) {
	user, ok := m.Current()
	if !ok {
		return
	}
	admin := RoleOf(user) == RoleAdmin

	switch e.StatusCode {
	case http.StatusUnauthorized:
		// Admins survive transient 401s from endpoints they may not own.
		if admin && !adminCriticalErrors[e.Detail] {
			m.log.Debug().Str("error", e.Detail).Msg("Ignoring non-critical 401 for admin")
			return
		}
		m.log.Warn().Str("error", e.Text()).Msg("Session rejected by backend, signing out")
		m.clear(ReasonUnauthorized)

	case http.StatusForbidden:
		if admin || e.ErrorType != "ACCOUNT_DISABLED" {
			return
		}
		msg := e.Detail
		if msg == "" {
			msg = DefaultDisabledMessage
		}
		redirect := e.RedirectTo
		if redirect == "" {
			redirect = "/signin"
		}
		m.log.Warn().Str("email", user.Email).Msg("Account disabled, signing out")
		m.clear(ReasonAccountDisabled)
		m.publish(events.EventAccountDisabled, events.AccountDisabledEvent{Message: msg, RedirectTo: redirect})
	}
}

// StartMonitor re-validates the session every status interval until the
// session ends or StopMonitor is called. Admin sessions are not monitored.
func (m *Manager) StartMonitor(ctx context.Context) error {
	user, ok := m.Current()
	if !ok {
		return apperrors.ErrNotAuthenticated
	}
	if RoleOf(user) == RoleAdmin {
		return nil
	}

	m.monitorMu.Lock()
	defer m.monitorMu.Unlock()
	if m.monitor != nil {
		return nil
	}

	s := cron.NewScheduler("session")
	if _, err := s.Every(m.interval, func() { m.checkStatus(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule session monitor: %w", err)
	}
	s.Start()
	m.monitor = s
	m.log.Debug().Dur("interval", m.interval).Msg("Session monitor started")
	return nil
}

func (m *Manager) checkStatus(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	if _, err := m.Validate(ctx); err != nil {
		m.log.Debug().Err(err).Msg("Session check failed")
	}
	if !m.IsAuthenticated() {
		m.haltMonitor()
	}
}

// StopMonitor stops the monitor and waits for a running check to finish.
func (m *Manager) StopMonitor() {
	m.monitorMu.Lock()
	s := m.monitor
	m.monitor = nil
	m.monitorMu.Unlock()
	if s != nil {
		s.Shutdown()
	}
}

// haltMonitor stops the monitor without waiting; safe from inside a job.
func (m *Manager) haltMonitor() {
	m.monitorMu.Lock()
	s := m.monitor
	m.monitor = nil
	m.monitorMu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// MonitorRunning reports whether the session monitor is scheduled.
func (m *Manager) MonitorRunning() bool {
	m.monitorMu.Lock()
	defer m.monitorMu.Unlock()
	return m.monitor != nil
}

// RecordConsent stores the cookie consent decision.
func (m *Manager) RecordConsent(ctx context.Context, accepted bool) (Consent, error) {
	c := Consent{
		Accepted:  accepted,
		Timestamp: m.now().UTC(),
		Version:   ConsentVersion,
		SessionID: uuid.NewString(),
	}
	if err := m.repo.SetPreference(ctx, PrefCookieConsent, c); err != nil {
		return Consent{}, fmt.Errorf("failed to save consent: %w", err)
	}
	return c, nil
}

// ConsentRecorded reports whether a consent decision exists.
func (m *Manager) ConsentRecorded(ctx context.Context) (bool, error) {
	var c Consent
	return m.repo.GetPreference(ctx, PrefCookieConsent, &c)
}

func (m *Manager) store(ctx context.Context, st State) error {
	if err := m.repo.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.mu.Lock()
	m.state = &st
	m.mu.Unlock()
	return nil
}

// clear drops the session once; later calls are no-ops.
func (m *Manager) clear(reason string) {
	m.mu.Lock()
	if m.state == nil {
		m.mu.Unlock()
		return
	}
	m.state = nil
	m.mu.Unlock()

	if err := m.repo.Clear(context.Background()); err != nil {
		m.log.Warn().Err(err).Msg("Failed to clear stored session")
	}
	m.haltMonitor()
	m.publish(events.EventSessionChanged, events.SessionEvent{LoggedIn: false, Reason: reason})
}

func (m *Manager) publish(t events.EventType, data interface{}) {
	if m.bus != nil {
		m.bus.Emit(t, data)
	}
}
