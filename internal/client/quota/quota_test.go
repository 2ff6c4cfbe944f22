package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
)

type fakeBackend struct {
	mu       sync.Mutex
	limit    int
	found    bool
	limitErr error
	bots     []api.Chatbot
	listErr  error
	lookups  atomic.Int32
	lists    atomic.Int32
}

func (f *fakeBackend) OrganizationLimit(context.Context, string) (int, bool, error) {
	f.lookups.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limit, f.found, f.limitErr
}

func (f *fakeBackend) ListChatbots(context.Context) ([]api.Chatbot, error) {
	f.lists.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bots, f.listErr
}

func (f *fakeBackend) setBots(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bots = make([]api.Chatbot, n)
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name    string
		user    api.User
		backend *fakeBackend
		want    int
	}{
		{"no org uses account limit", api.User{ChatbotsLimit: 4}, &fakeBackend{}, 4},
		{"no org no limit uses default", api.User{}, &fakeBackend{}, 1},
		{"org limit wins", api.User{OrganizationID: "o1", ChatbotsLimit: 9}, &fakeBackend{limit: 5, found: true}, 5},
		{"org without limit uses org default", api.User{OrganizationID: "o1", ChatbotsLimit: 9}, &fakeBackend{}, 2},
		{"org lookup error uses account limit", api.User{OrganizationID: "o1", ChatbotsLimit: 3}, &fakeBackend{limitErr: errors.New("boom")}, 3},
		{"org lookup error without account limit", api.User{OrganizationID: "o1"}, &fakeBackend{limitErr: errors.New("boom")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.backend, Options{})
			assert.Equal(t, tt.want, r.Limit(context.Background(), tt.user))
		})
	}
}

func TestLimitConfiguredDefaults(t *testing.T) {
	r := NewResolver(&fakeBackend{}, Options{UserDefault: 3, OrganizationDefault: 7})
	assert.Equal(t, 3, r.Limit(context.Background(), api.User{}))
	assert.Equal(t, 7, r.Limit(context.Background(), api.User{OrganizationID: "o1"}))
}

func TestLimitCache(t *testing.T) {
	be := &fakeBackend{limit: 5, found: true}
	r := NewResolver(be, Options{})
	user := api.User{OrganizationID: "o1"}

	assert.Equal(t, 5, r.Limit(context.Background(), user))
	assert.Equal(t, 5, r.Limit(context.Background(), user))
	assert.EqualValues(t, 1, be.lookups.Load())

	be.mu.Lock()
	be.limit = 8
	be.mu.Unlock()
	r.Invalidate("o1")
	assert.Equal(t, 8, r.Limit(context.Background(), user))
	assert.EqualValues(t, 2, be.lookups.Load())

	// Errors are not cached.
	be.mu.Lock()
	be.limitErr = errors.New("down")
	be.mu.Unlock()
	r.Purge()
	assert.Equal(t, 1, r.Limit(context.Background(), user))
	assert.Equal(t, 1, r.Limit(context.Background(), user))
	assert.EqualValues(t, 4, be.lookups.Load())
}

func TestUsage(t *testing.T) {
	be := &fakeBackend{limit: 2, found: true}
	be.setBots(2)
	r := NewResolver(be, Options{})

	u, err := r.Usage(context.Background(), api.User{OrganizationID: "o1"})
	require.NoError(t, err)
	assert.Equal(t, Usage{Current: 2, Limit: 2}, u)
	assert.True(t, u.Reached())
	assert.Equal(t, 100, u.Percent())

	be.mu.Lock()
	be.listErr = errors.New("list failed")
	be.mu.Unlock()
	_, err = r.Usage(context.Background(), api.User{})
	assert.Error(t, err)
}

func TestUsageUnsuccessfulListCountsNone(t *testing.T) {
	be := &fakeBackend{listErr: &api.APIError{StatusCode: 200, Detail: "Failed to fetch chatbots"}}
	r := NewResolver(be, Options{})

	u, err := r.Usage(context.Background(), api.User{ChatbotsLimit: 3})
	require.NoError(t, err)
	assert.Equal(t, Usage{Current: 0, Limit: 3}, u)

	be.mu.Lock()
	be.listErr = &api.APIError{StatusCode: 500, Detail: "boom"}
	be.mu.Unlock()
	_, err = r.Usage(context.Background(), api.User{ChatbotsLimit: 3})
	assert.Error(t, err)
}

func TestUsagePercent(t *testing.T) {
	tests := []struct {
		usage   Usage
		percent int
		bar     int
		reached bool
	}{
		{Usage{0, 1}, 0, 0, false},
		{Usage{1, 3}, 33, 33, false},
		{Usage{2, 3}, 67, 67, false},
		{Usage{3, 3}, 100, 100, true},
		{Usage{3, 2}, 150, 100, true},
		{Usage{1, 0}, 0, 0, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.percent, tt.usage.Percent(), "%+v", tt.usage)
		assert.Equal(t, tt.bar, tt.usage.BarPercent(), "%+v", tt.usage)
		assert.Equal(t, tt.reached, tt.usage.Reached(), "%+v", tt.usage)
	}
}

func TestCanCreate(t *testing.T) {
	full := Usage{Current: 2, Limit: 2}
	assert.False(t, CanCreate(full, false))
	assert.True(t, CanCreate(full, true))
	assert.True(t, CanCreate(Usage{Current: 1, Limit: 2}, false))
}

func TestUsageWatcherRefreshesOnEvents(t *testing.T) {
	be := &fakeBackend{}
	be.setBots(1)
	bus := events.NewBus()
	defer bus.Close()

	current := func() (api.User, bool) { return api.User{ChatbotsLimit: 3}, true }
	w := NewUsageWatcher(NewResolver(be, Options{}), bus, current, time.Hour)

	changes := make(chan Usage, 8)
	w.OnChange(func(u Usage) { changes <- u })

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	first := <-changes
	assert.Equal(t, Usage{Current: 1, Limit: 3}, first)

	be.setBots(2)
	bus.Emit(events.EventChatbotCreated, events.ChatbotEvent{ChatbotID: "b2"})

	select {
	case u := <-changes:
		assert.Equal(t, Usage{Current: 2, Limit: 3}, u)
	case <-time.After(2 * time.Second):
		t.Fatal("usage was not refreshed")
	}

	got, err := w.Usage()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Current)
}

func TestUsageWatcherSkipsAdmin(t *testing.T) {
	be := &fakeBackend{}
	current := func() (api.User, bool) { return api.User{Role: "admin"}, true }
	w := NewUsageWatcher(NewResolver(be, Options{}), nil, current, time.Hour)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	assert.Zero(t, be.lists.Load())
}

func TestUsageWatcherInvalidatesOrganization(t *testing.T) {
	be := &fakeBackend{limit: 2, found: true}
	bus := events.NewBus()
	defer bus.Close()

	current := func() (api.User, bool) { return api.User{OrganizationID: "o1"}, true }
	w := NewUsageWatcher(NewResolver(be, Options{}), bus, current, time.Hour)
	changes := make(chan Usage, 8)
	w.OnChange(func(u Usage) { changes <- u })

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.Equal(t, 2, (<-changes).Limit)

	be.mu.Lock()
	be.limit = 10
	be.mu.Unlock()
	bus.Emit(events.EventOrganizationChanged, events.OrganizationEvent{OrganizationID: "o1"})

	select {
	case u := <-changes:
		assert.Equal(t, 10, u.Limit)
	case <-time.After(2 * time.Second):
		t.Fatal("usage was not refreshed")
	}
}
