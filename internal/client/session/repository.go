package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/botdesk/botdesk/internal/client/api"
)

// Preference keys shared by every Repository.
const (
	PrefViewMode      = "view_mode"
	PrefCookieConsent = "cookie_consent"
)

// State is the persisted signed-in session.
type State struct {
	Token string
	User  api.User
}

// Consent is the stored cookie consent decision.
type Consent struct {
	Accepted  bool      `json:"accepted"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	SessionID string    `json:"sessionId"`
}

// Repository persists the session and user preferences between runs.
type Repository interface {
	// Load returns the stored session, or nil when signed out.
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s State) error
	Clear(ctx context.Context) error

	// GetPreference decodes the stored value of key into dst and reports
	// whether one existed.
	GetPreference(ctx context.Context, key string, dst interface{}) (bool, error)
	SetPreference(ctx context.Context, key string, value interface{}) error
}

// MemoryRepository keeps everything in process. Used by tests and by
// commands run with --ephemeral.
type MemoryRepository struct {
	mu    sync.Mutex
	state *State
	prefs map[string][]byte
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{prefs: make(map[string][]byte)}
}

// Load implements Repository.
func (r *MemoryRepository) Load(context.Context) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, nil
	}
	s := *r.state
	return &s, nil
}

// Save implements Repository.
func (r *MemoryRepository) Save(_ context.Context, s State) error {
	r.mu.Lock()
	r.state = &s
	r.mu.Unlock()
	return nil
}

// Clear implements Repository.
func (r *MemoryRepository) Clear(context.Context) error {
	r.mu.Lock()
	r.state = nil
	r.mu.Unlock()
	return nil
}

// GetPreference implements Repository.
func (r *MemoryRepository) GetPreference(_ context.Context, key string, dst interface{}) (bool, error) {
	r.mu.Lock()
	raw, ok := r.prefs[key]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

// SetPreference implements Repository.
func (r *MemoryRepository) SetPreference(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.prefs[key] = raw
	r.mu.Unlock()
	return nil
}
