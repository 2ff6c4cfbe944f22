package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
	"github.com/botdesk/botdesk/pkg/cron"
	"github.com/botdesk/botdesk/pkg/logger"
)

// CurrentUser returns the signed-in user.
type CurrentUser func() (api.User, bool)

// UsageWatcher keeps a fresh Usage for a non-admin account. It refreshes on
// chatbot changes and on a fixed interval.
type UsageWatcher struct {
	resolver *Resolver
	bus      *events.Bus
	current  CurrentUser
	interval time.Duration
	log      zerolog.Logger

	mu       sync.RWMutex
	usage    Usage
	err      error
	onChange func(Usage)

	sched *cron.Scheduler
	sub   <-chan events.Event
	done  chan struct{}
}

// NewUsageWatcher creates a stopped watcher. bus may be nil.
func NewUsageWatcher(resolver *Resolver, bus *events.Bus, current CurrentUser, interval time.Duration) *UsageWatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &UsageWatcher{
		resolver: resolver,
		bus:      bus,
		current:  current,
		interval: interval,
		log:      logger.WithComponent("quota.watcher"),
	}
}

// OnChange registers a callback run after each successful refresh.
func (w *UsageWatcher) OnChange(fn func(Usage)) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Usage returns the last refreshed usage and the error of the last refresh.
func (w *UsageWatcher) Usage() (Usage, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.usage, w.err
}

// Refresh recomputes usage now.
func (w *UsageWatcher) Refresh(ctx context.Context) (Usage, error) {
	user, ok := w.current()
	if !ok {
		return Usage{}, fmt.Errorf("no signed-in user")
	}

	u, err := w.resolver.Usage(ctx, user)

	w.mu.Lock()
	if err != nil {
		w.err = err
		w.mu.Unlock()
		w.log.Warn().Err(err).Msg("Failed to refresh chatbot usage")
		return Usage{}, err
	}
	w.usage, w.err = u, nil
	fn := w.onChange
	w.mu.Unlock()

	if fn != nil {
		fn(u)
	}
	return u, nil
}

// Start refreshes once and then keeps refreshing until Stop. Admins have no
// quota, so Start is a no-op for them.
func (w *UsageWatcher) Start(ctx context.Context) error {
	user, ok := w.current()
	if !ok || user.IsAdmin() {
		return nil
	}

	w.mu.Lock()
	if w.sched != nil {
		w.mu.Unlock()
		return nil
	}
	sched := cron.NewScheduler("usage")
	if _, err := sched.Every(w.interval, func() { w.refreshQuietly(ctx) }); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to schedule usage refresh: %w", err)
	}
	w.sched = sched
	w.done = make(chan struct{})
	if w.bus != nil {
		w.sub = w.bus.Subscribe(
			events.EventChatbotCreated,
			events.EventChatbotUpdated,
			events.EventChatbotDeleted,
			events.EventOrganizationChanged,
		)
		go w.listen(ctx, w.sub, w.done)
	}
	w.mu.Unlock()

	sched.Start()
	_, err := w.Refresh(ctx)
	return err
}

func (w *UsageWatcher) listen(ctx context.Context, sub <-chan events.Event, done <-chan struct{}) {
	for {
		select {
		case e, ok := <-sub:
			if !ok {
				return
			}
			if oe, isOrg := e.Data.(events.OrganizationEvent); isOrg {
				w.resolver.Invalidate(oe.OrganizationID)
			}
			w.refreshQuietly(ctx)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *UsageWatcher) refreshQuietly(ctx context.Context) {
	if _, err := w.Refresh(ctx); err != nil {
		w.log.Debug().Err(err).Msg("Usage refresh skipped")
	}
}

// Stop halts the watcher.
func (w *UsageWatcher) Stop() {
	w.mu.Lock()
	sched, sub, done := w.sched, w.sub, w.done
	w.sched, w.sub, w.done = nil, nil, nil
	w.mu.Unlock()

	if sched == nil {
		return
	}
	close(done)
	if sub != nil {
		w.bus.Unsubscribe(sub)
	}
	sched.Shutdown()
}
