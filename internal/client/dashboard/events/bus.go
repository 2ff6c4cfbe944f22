package events

import (
	"sync"

	"github.com/botdesk/botdesk/pkg/logger"
)

// Bus fans change notifications out to every interested view.
// Publishing never blocks the caller; a full queue drops the event.
type Bus struct {
	eventCh     chan Event
	subscribers []*subscription
	mu          sync.RWMutex
	stopCh      chan struct{}
	stopped     bool
}

type subscription struct {
	ch    chan Event
	types map[EventType]bool // nil means every type
}

func (s *subscription) wants(t EventType) bool {
	return s.types == nil || s.types[t]
}

// NewBus creates a bus and starts its dispatch goroutine.
func NewBus() *Bus {
	b := &Bus{
		eventCh: make(chan Event, 256),
		stopCh:  make(chan struct{}),
	}

	go b.run()

	return b
}

// Publish queues an event for delivery.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	if b.stopped {
		b.mu.RUnlock()
		return
	}
	b.mu.RUnlock()

	select {
	case b.eventCh <- event:
	default:
		logger.WarnEvent().
			Str("event_type", string(event.Type)).
			Msg("Event queue full, dropping event")
	}
}

// Emit is shorthand for Publish(New(t, data)).
func (b *Bus) Emit(t EventType, data interface{}) {
	b.Publish(New(t, data))
}

// Subscribe returns a channel receiving events of the given types, or every
// event when no type is given. The caller must keep draining it.
func (b *Bus) Subscribe(types ...EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan Event, 32)}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	if b.stopped {
		close(sub.ch)
		return sub.ch
	}
	b.subscribers = append(b.subscribers, sub)

	return sub.ch
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.ch == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

func (b *Bus) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bus) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			logger.WarnEvent().
				Str("event_type", string(event.Type)).
				Msg("Subscriber channel full, skipping event")
		}
	}
}

// Close stops dispatch and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	b.stopped = true
	close(b.stopCh)

	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.subscribers = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
