package chat

import "sync"

// Transcript is a bounded, thread-safe message history. When full, new
// messages overwrite the oldest ones.
type Transcript struct {
	buffer  []Message
	head    int // index where the next message is written
	size    int
	maxSize int
	mu      sync.RWMutex
}

// NewTranscript creates a transcript holding at most maxSize messages.
func NewTranscript(maxSize int) *Transcript {
	if maxSize <= 0 {
		maxSize = DefaultHistory
	}
	return &Transcript{
		buffer:  make([]Message, maxSize),
		maxSize: maxSize,
	}
}

// Append adds a message, evicting the oldest when full.
func (t *Transcript) Append(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked(m)
}

func (t *Transcript) appendLocked(m Message) {
	t.buffer[t.head] = m
	t.head = (t.head + 1) % t.maxSize
	if t.size < t.maxSize {
		t.size++
	}
}

// Messages returns every message, oldest first.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.orderedLocked()
}

func (t *Transcript) orderedLocked() []Message {
	out := make([]Message, 0, t.size)
	start := (t.head - t.size + t.maxSize) % t.maxSize
	for i := 0; i < t.size; i++ {
		out = append(out, t.buffer[(start+i)%t.maxSize])
	}
	return out
}

// Last returns the newest message.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.size == 0 {
		return Message{}, false
	}
	return t.buffer[(t.head-1+t.maxSize)%t.maxSize], true
}

// RemoveIf drops every message matching fn and keeps the rest in order.
func (t *Transcript) RemoveIf(fn func(Message) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.orderedLocked()
	t.resetLocked()
	removed := 0
	for _, m := range kept {
		if fn(m) {
			removed++
			continue
		}
		t.appendLocked(m)
	}
	return removed
}

// Reset replaces the whole history with msgs.
func (t *Transcript) Reset(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	for _, m := range msgs {
		t.appendLocked(m)
	}
}

func (t *Transcript) resetLocked() {
	t.head = 0
	t.size = 0
	t.buffer = make([]Message, t.maxSize)
}

// Len returns the number of stored messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Capacity returns the maximum number of stored messages.
func (t *Transcript) Capacity() int {
	return t.maxSize
}
