package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

// backend is a scripted stand-in for the REST API.
type backend struct {
	mu       sync.Mutex
	status   int
	body     map[string]interface{}
	logouts  int
	meCalls  int
	lastAuth string
}

func (b *backend) set(status int, body map[string]interface{}) {
	b.mu.Lock()
	b.status, b.body = status, body
	b.mu.Unlock()
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastAuth = r.Header.Get("Authorization")
	switch r.URL.Path {
	case "/api/auth/logout":
		b.logouts++
	case "/api/auth/me":
		b.meCalls++
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.status)
	_ = json.NewEncoder(w).Encode(b.body)
}

func (b *backend) counts() (logouts, meCalls int, lastAuth string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logouts, b.meCalls, b.lastAuth
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "sub": "u1"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func setup(t *testing.T) (*Manager, *backend, *MemoryRepository, *events.Bus) {
	t.Helper()
	be := &backend{status: http.StatusOK, body: map[string]interface{}{"success": true}}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	bus := events.NewBus()
	t.Cleanup(bus.Close)

	repo := NewMemoryRepository()
	m := NewManager(api.New(api.Config{BaseURL: srv.URL}), repo, bus, Options{StatusInterval: time.Second})
	t.Cleanup(m.StopMonitor)
	return m, be, repo, bus
}

func signIn(t *testing.T, m *Manager, user api.User) string {
	t.Helper()
	token := signToken(t, time.Now().Add(time.Hour))
	require.NoError(t, m.store(context.Background(), State{Token: token, User: user}))
	return token
}

func nextEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return events.Event{}
	}
}

func TestLogin(t *testing.T) {
	m, be, repo, bus := setup(t)
	sub := bus.Subscribe(events.EventSessionChanged)

	token := signToken(t, time.Now().Add(time.Hour))
	be.set(http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"token": token,
			"user":  map[string]interface{}{"id": "u1", "email": "a@b.co", "role": "user"},
		},
	})

	user, err := m.Login(context.Background(), "a@b.co", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, token, m.Token())
	assert.Equal(t, RoleUser, m.Role())

	st, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, token, st.Token)

	e := nextEvent(t, sub)
	assert.Equal(t, events.SessionEvent{LoggedIn: true, Reason: ReasonLogin}, e.Data)
}

func TestLoginValidation(t *testing.T) {
	m, be, _, _ := setup(t)

	_, err := m.Login(context.Background(), "not-an-email", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, meCalls, _ := be.counts()
	assert.Zero(t, meCalls)
	assert.False(t, m.IsAuthenticated())
}

func TestLoginEmailNotVerified(t *testing.T) {
	m, be, _, _ := setup(t)
	be.set(http.StatusForbidden, map[string]interface{}{
		"success": false, "message": "Please verify your email", "errorType": "EMAIL_NOT_VERIFIED", "userEmail": "a@b.co",
	})

	_, err := m.Login(context.Background(), "a@b.co", "Secret123")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmailNotVerified)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "a@b.co", apiErr.UserEmail)
	assert.False(t, m.IsAuthenticated())
}

func TestLogoutAlwaysClears(t *testing.T) {
	m, be, repo, _ := setup(t)
	signIn(t, m, api.User{ID: "u1"})
	be.set(http.StatusInternalServerError, map[string]interface{}{"success": false})

	require.NoError(t, m.Logout(context.Background()))
	assert.False(t, m.IsAuthenticated())
	logouts, _, _ := be.counts()
	assert.Equal(t, 1, logouts)

	st, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestHandleAuthError(t *testing.T) {
	tests := []struct {
		name        string
		user        api.User
		err         *api.APIError
		wantCleared bool
		wantEvent   *events.AccountDisabledEvent
	}{
		{
			name:        "user any 401",
			user:        api.User{Role: "user"},
			err:         &api.APIError{StatusCode: 401, Detail: "whatever"},
			wantCleared: true,
		},
		{
			name: "admin non-critical 401",
			user: api.User{Role: "admin"},
			err:  &api.APIError{StatusCode: 401, Detail: "Not allowed here"},
		},
		{
			name:        "admin critical 401",
			user:        api.User{Role: "admin"},
			err:         &api.APIError{StatusCode: 401, Detail: "Token expired"},
			wantCleared: true,
		},
		{
			name:        "admin by userType critical 401",
			user:        api.User{UserType: "admin"},
			err:         &api.APIError{StatusCode: 401, Detail: "User not found"},
			wantCleared: true,
		},
		{
			name:        "user disabled with message",
			user:        api.User{Role: "user"},
			err:         &api.APIError{StatusCode: 403, ErrorType: "ACCOUNT_DISABLED", Detail: "Your account is disabled", RedirectTo: "/disabled"},
			wantCleared: true,
			wantEvent:   &events.AccountDisabledEvent{Message: "Your account is disabled", RedirectTo: "/disabled"},
		},
		{
			name:        "user disabled defaults",
			user:        api.User{Role: "user"},
			err:         &api.APIError{StatusCode: 403, ErrorType: "ACCOUNT_DISABLED"},
			wantCleared: true,
			wantEvent:   &events.AccountDisabledEvent{Message: DefaultDisabledMessage, RedirectTo: "/signin"},
		},
		{
			name: "admin disabled ignored",
			user: api.User{Role: "admin"},
			err:  &api.APIError{StatusCode: 403, ErrorType: "ACCOUNT_DISABLED"},
		},
		{
			name: "other 403 ignored",
			user: api.User{Role: "user"},
			err:  &api.APIError{StatusCode: 403, ErrorType: "FORBIDDEN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _, bus := setup(t)
			sub := bus.Subscribe(events.EventAccountDisabled)
			signIn(t, m, tt.user)

			m.HandleAuthError(tt.err)
			assert.Equal(t, !tt.wantCleared, m.IsAuthenticated())

			if tt.wantEvent != nil {
				e := nextEvent(t, sub)
				assert.Equal(t, *tt.wantEvent, e.Data)
			}
		})
	}
}

func TestHandleAuthErrorSignedOut(t *testing.T) {
	m, _, _, bus := setup(t)
	sub := bus.Subscribe()
	m.HandleAuthError(&api.APIError{StatusCode: 401})

	select {
	case e := <-sub:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        map[string]interface{}
		wantErr     error
		wantCleared bool
	}{
		{
			name:   "ok refreshes profile",
			status: 200,
			body:   map[string]interface{}{"success": true, "data": map[string]interface{}{"id": "u1", "name": "Fresh"}},
		},
		{
			name:        "session expired",
			status:      401,
			body:        map[string]interface{}{"success": false, "errorType": "SESSION_EXPIRED"},
			wantErr:     apperrors.ErrSessionExpired,
			wantCleared: true,
		},
		{
			name:        "account disabled",
			status:      403,
			body:        map[string]interface{}{"success": false, "errorType": "ACCOUNT_DISABLED"},
			wantErr:     apperrors.ErrAccountDisabled,
			wantCleared: true,
		},
		{
			name:    "server error keeps session",
			status:  500,
			body:    map[string]interface{}{"success": false, "message": "boom"},
			wantErr: &api.APIError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, be, _, _ := setup(t)
			token := signIn(t, m, api.User{ID: "u1", Role: "admin", Name: "Stale"})
			be.set(tt.status, tt.body)

			user, err := m.Validate(context.Background())
			_, _, lastAuth := be.counts()
			assert.Equal(t, "Bearer "+token, lastAuth)

			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Equal(t, "Fresh", user.Name)
				current, _ := m.Current()
				assert.Equal(t, "Fresh", current.Name)
			case *api.APIError:
				require.ErrorAs(t, err, &want)
			default:
				assert.ErrorIs(t, err, want)
			}
			assert.Equal(t, !tt.wantCleared, m.IsAuthenticated())
		})
	}
}

func TestValidateLocalToken(t *testing.T) {
	m, be, _, _ := setup(t)

	_, err := m.Validate(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	require.NoError(t, m.store(context.Background(), State{Token: signToken(t, time.Now().Add(-time.Minute))}))
	_, err = m.Validate(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	assert.False(t, m.IsAuthenticated())

	require.NoError(t, m.store(context.Background(), State{Token: "garbage"}))
	_, err = m.Validate(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	assert.False(t, m.IsAuthenticated())

	_, meCalls, _ := be.counts()
	assert.Zero(t, meCalls)
}

func TestSignInWithToken(t *testing.T) {
	m, be, _, _ := setup(t)
	be.set(http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{"id": "g1", "email": "g@b.co"}})

	token := signToken(t, time.Now().Add(time.Hour))
	user, err := m.SignInWithToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "g1", user.ID)
	assert.Equal(t, token, m.Token())
	_, _, lastAuth := be.counts()
	assert.Equal(t, "Bearer "+token, lastAuth)

	be.set(http.StatusUnauthorized, map[string]interface{}{"success": false, "errorType": "INVALID_TOKEN"})
	require.NoError(t, m.Logout(context.Background()))
	_, err = m.SignInWithToken(context.Background(), signToken(t, time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
}

func TestMonitorSkipsAdmin(t *testing.T) {
	m, _, _, _ := setup(t)
	assert.ErrorIs(t, m.StartMonitor(context.Background()), apperrors.ErrNotAuthenticated)

	signIn(t, m, api.User{Role: "admin"})
	require.NoError(t, m.StartMonitor(context.Background()))
	assert.False(t, m.MonitorRunning())
}

func TestMonitorStopsAfterForcedLogout(t *testing.T) {
	m, be, _, _ := setup(t)
	signIn(t, m, api.User{Role: "user"})
	be.set(http.StatusUnauthorized, map[string]interface{}{"success": false, "errorType": "SESSION_EXPIRED"})

	require.NoError(t, m.StartMonitor(context.Background()))
	assert.True(t, m.MonitorRunning())

	assert.Eventually(t, func() bool { return !m.IsAuthenticated() && !m.MonitorRunning() },
		4*time.Second, 50*time.Millisecond)
}

func TestConsent(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	m := NewManager(api.New(api.Config{BaseURL: "http://127.0.0.1:0"}), repo, nil, Options{Now: func() time.Time { return fixed }})

	ok, err := m.ConsentRecorded(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := m.RecordConsent(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, c.Accepted)
	assert.Equal(t, ConsentVersion, c.Version)
	assert.Equal(t, fixed, c.Timestamp)
	assert.NotEmpty(t, c.SessionID)

	ok, err = m.ConsentRecorded(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	var stored Consent
	found, err := repo.GetPreference(context.Background(), PrefCookieConsent, &stored)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, c, stored)
}

func TestNavigationFor(t *testing.T) {
	admin := NavigationFor(RoleOf(api.User{Role: "admin"}))
	assert.Equal(t, "System Admin", admin.Team.Name)
	assert.Equal(t, []string{"Dashboard", "Organizations"}, titles(admin.Sections))
	assert.Equal(t, []string{"Email Configuration"}, titles(admin.Settings))
	assert.True(t, admin.Allows("/dashboard/organizations/42"))
	assert.False(t, admin.Allows("/chat-bot"))

	user := NavigationFor(RoleOf(api.User{Role: "user"}))
	assert.Equal(t, []string{"Dashboard", "Chat Bot"}, titles(user.Sections))
	assert.Equal(t, []string{"General"}, titles(user.Settings))
	assert.True(t, user.Allows("/chat-bot/new"))
	assert.False(t, user.Allows("/dashboard/organizations"))
	assert.False(t, user.Allows("/dashboard/anything"))
}

func titles(items []NavItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok, err := TokenExpiry(signToken(t, exp))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(exp))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	expired, err := TokenExpired(noExp, time.Now())
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = TokenExpired("a.b", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	assert.True(t, expired)
}
