package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

// newTestClient starts a server with handler and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClientHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"id": "u1"}})
	})
	c.SetTokenSource(func() string { return "tok-123" })

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	assert.Equal(t, "Bearer tok-123", got.Get("Authorization"))
	assert.Equal(t, "true", got.Get("ngrok-skip-browser-warning"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestClientNoTokenNoAuthorization(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	c.SetTokenSource(func() string { return "" })

	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, auth)
}

func TestClientErrorEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      interface{}
		sentinel  error
		wantText  string
		wantHook  bool
		wantEmail string
	}{
		{
			name:     "session expired",
			status:   http.StatusUnauthorized,
			body:     map[string]interface{}{"success": false, "error": "Session expired", "errorType": "SESSION_EXPIRED"},
			sentinel: apperrors.ErrSessionExpired,
			wantText: "Session expired",
			wantHook: true,
		},
		{
			name:     "account disabled",
			status:   http.StatusForbidden,
			body:     map[string]interface{}{"success": false, "error": "Disabled", "errorType": "ACCOUNT_DISABLED", "redirectTo": "/signin"},
			sentinel: apperrors.ErrAccountDisabled,
			wantText: "Disabled",
			wantHook: true,
		},
		{
			name:      "email not verified",
			status:    http.StatusForbidden,
			body:      map[string]interface{}{"success": false, "message": "Verify first", "errorType": "EMAIL_NOT_VERIFIED", "userEmail": "a@b.co"},
			sentinel:  apperrors.ErrEmailNotVerified,
			wantText:  "Verify first",
			wantHook:  true,
			wantEmail: "a@b.co",
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     map[string]interface{}{"success": false, "message": "Chatbot not found"},
			sentinel: apperrors.ErrNotFound,
			wantText: "Chatbot not found",
		},
		{
			name:     "success false on 200",
			status:   http.StatusOK,
			body:     map[string]interface{}{"success": false, "message": "nope"},
			wantText: "nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hooked atomic.Bool
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			c.OnAuthError(func(*APIError) { hooked.Store(true) })

			_, err := c.Me(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantText, apiErr.Text())
			assert.Equal(t, tt.wantText, Message(err, "fallback"))
			assert.Equal(t, tt.wantEmail, apiErr.UserEmail)
			assert.Equal(t, tt.wantHook, hooked.Load())
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestClientNonJSONResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := c.ListChatbots(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Text())
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "fallback", Message(io.EOF, "fallback"))
	assert.Equal(t, "fallback", Message(&APIError{StatusCode: 500}, "fallback"))

	ve := apperrors.NewValidationError()
	ve.Add("email", "Email is required")
	assert.Contains(t, Message(ve, "fallback"), "Email is required")
}

func TestListOrganizationsLimit(t *testing.T) {
	var rawQuery, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery, path = r.URL.RawQuery, r.URL.Path
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": "o1", "name": "Acme", "isActive": true},
				{"id": "o2", "name": "Globex", "isActive": false},
			},
		})
	})

	orgs, err := c.ListOrganizations(context.Background(), ListOptions{Limit: 1000})
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "limit=1000", rawQuery)
	assert.Equal(t, "/api/dashboard/admin/organization/getorganization", path)
	assert.True(t, orgs[0].IsActive())
	assert.False(t, orgs[1].IsActive())

	_, err = c.ListOrganizations(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}

func TestOrganizationLimit(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLimit int
		wantFound bool
		wantErr   bool
	}{
		{"explicit limit", 200, `{"success":true,"data":{"chatbotsLimit":5}}`, 5, true, false},
		{"missing limit", 200, `{"success":true,"data":{"name":"Acme"}}`, 0, false, false},
		{"zero limit", 200, `{"success":true,"data":{"chatbotsLimit":0}}`, 0, false, false},
		{"success false", 200, `{"success":false,"message":"no org"}`, 0, false, false},
		{"server error", 500, `{"success":false,"message":"boom"}`, 0, false, true},
		{"not found", 404, `{"success":false}`, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			limit, found, err := c.OrganizationLimit(context.Background(), "org-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestSetOrganizationActive(t *testing.T) {
	var method, path string
	var body map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})

	require.NoError(t, c.SetOrganizationActive(context.Background(), "o1", false))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/dashboard/admin/organization/putorganization/o1", path)
	assert.Equal(t, map[string]interface{}{"isActive": false}, body)
}

func TestUploadDocuments(t *testing.T) {
	type part struct {
		field, filename, contentType, content string
	}
	var parts []part
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		mr, err := r.MultipartReader()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": err.Error()})
			return
		}
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(p)
			parts = append(parts, part{p.FormName(), p.FileName(), p.Header.Get("Content-Type"), string(data)})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Documents uploaded"})
	})

	msg, err := c.UploadDocuments(context.Background(), "bot-1", []Upload{
		{Name: "faq.txt", ContentType: "text/plain", Body: strings.NewReader("hello")},
		{Name: "policy.pdf", Body: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Documents uploaded", msg)
	assert.Equal(t, "/api/dashboard/user/chatbot/bot-1/documents", path)

	require.Len(t, parts, 2)
	assert.Equal(t, part{"documents", "faq.txt", "text/plain", "hello"}, parts[0])
	assert.Equal(t, part{"documents", "policy.pdf", "application/octet-stream", "%PDF"}, parts[1])
}

func TestUploadDocumentsEmpty(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})

	msg, err := c.UploadDocuments(context.Background(), "bot-1", nil)
	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Zero(t, calls.Load())
}

func TestSendMessage(t *testing.T) {
	var req ChatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"response": "Hi there", "sessionId": "s-1"},
		})
	})

	reply, err := c.SendMessage(context.Background(), ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Response)
	assert.Equal(t, "s-1", reply.SessionID)
	assert.Equal(t, "default", req.ConfigID)
	assert.Empty(t, req.SessionID)
}

func TestSendMessageTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ChatTimeout: 50 * time.Millisecond})
	_, err := c.SendMessage(context.Background(), ChatRequest{Message: "slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRequestTimeout)
}

func TestEmailConfiguration(t *testing.T) {
	var saved EmailSettings
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"smtpHost": "smtp.example.com", "smtpPassword": "leaked"},
			})
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&saved)
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Saved"})
		}
	})

	cfg, err := c.GetEmailConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Empty(t, cfg.SMTPPassword)
	assert.Equal(t, "587", cfg.SMTPPort)
	assert.Equal(t, "tls", cfg.Encryption)

	msg, err := c.SaveEmailConfiguration(context.Background(), EmailSettings{SMTPHost: "smtp.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Saved", msg)
	assert.Equal(t, "587", saved.SMTPPort)
	assert.Equal(t, "tls", saved.Encryption)
}

func TestSaveChatBotSettingsMethod(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"id": "cfg-1"}})
	})

	out, err := c.SaveChatBotSettings(context.Background(), ChatBotSettings{CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", out.ID)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/dashboard/settings/chat-bot", path)

	_, err = c.SaveChatBotSettings(context.Background(), ChatBotSettings{ID: "cfg-1", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/dashboard/settings/chat-bot/cfg-1", path)
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, User{Role: "admin"}.IsAdmin())
	assert.True(t, User{UserType: "admin"}.IsAdmin())
	assert.False(t, User{Role: "user"}.IsAdmin())
}

func TestGoogleSignInURL(t *testing.T) {
	c := New(Config{BaseURL: "https://api.example.com/"})
	assert.Equal(t, "https://api.example.com/api/auth/google", c.GoogleSignInURL())
}

func TestObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	var calls []CallInfo
	c := New(Config{BaseURL: srv.URL, Observer: func(ci CallInfo) { calls = append(calls, ci) }})

	require.NoError(t, c.Logout(context.Background()))
	_, err := c.Me(context.Background())
	require.Error(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/api/auth/logout", calls[0].Path)
	assert.Equal(t, http.StatusOK, calls[0].Status)
	assert.NoError(t, calls[0].Err)
	assert.Equal(t, http.StatusNotFound, calls[1].Status)
	assert.ErrorIs(t, calls[1].Err, apperrors.ErrNotFound)
}
