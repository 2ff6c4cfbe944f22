package collection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

// SendFunc performs a mutation on the backend.
type SendFunc func(ctx context.Context) error

// Create sends a creation request and, once the backend confirms it,
// refetches the whole collection so server-assigned fields are picked up.
func (s *Store[T]) Create(ctx context.Context, send SendFunc, fetch FetchFunc[T]) error {
	s.setState(StateMutating, nil)

	if err := send(ctx); err != nil {
		s.fail(err, "Create failed")
		return err
	}

	return s.Load(ctx, fetch)
}

// Update sends an edit and, on success, merges it into the stored item via
// apply. The collection is untouched on failure.
func (s *Store[T]) Update(ctx context.Context, key string, send SendFunc, apply func(T) T) error {
	s.mu.Lock()
	if s.indexLocked(key) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", key, apperrors.ErrNotFound)
	}
	s.mu.Unlock()

	s.setState(StateMutating, nil)

	if err := send(ctx); err != nil {
		s.fail(err, "Update failed")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(key); i >= 0 {
		s.items[i] = apply(s.items[i])
	}
	s.state = StateReady
	s.err = nil
	s.recomputeLocked()
	s.notifyAndUnlock()
	return nil
}

// Delete marks key as in progress, sends the deletion and removes the item
// once the backend confirms. A second Delete for the same key while the
// first is outstanding fails with ErrMutationInProgress.
func (s *Store[T]) Delete(ctx context.Context, key string, send SendFunc) error {
	s.mu.Lock()
	if s.pending[key] {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", key, apperrors.ErrMutationInProgress)
	}
	if s.indexLocked(key) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", key, apperrors.ErrNotFound)
	}
	s.pending[key] = true
	s.state = StateMutating
	s.err = nil
	s.recomputeLocked()
	s.notifyAndUnlock()

	err := send(ctx)

	s.mu.Lock()
	delete(s.pending, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Delete failed")
		s.state = StateError
		s.err = err
	} else {
		if i := s.indexLocked(key); i >= 0 {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
		}
		s.state = StateReady
	}
	s.recomputeLocked()
	s.notifyAndUnlock()
	return err
}

func (s *Store[T]) fail(err error, msg string) {
	s.log.Warn().Err(err).Msg(msg)
	s.setState(StateError, err)
}

// Confirmation is a pending user decision guarding a mutation. Exactly one
// of Accept or Cancel takes effect.
type Confirmation struct {
	Title  string
	Prompt string
	Action string

	once   sync.Once
	accept func(ctx context.Context) error
	done   atomic.Bool
}

// Accept performs the guarded mutation. Calls after the first decision are
// no-ops returning nil.
func (c *Confirmation) Accept(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.done.Store(true)
		err = c.accept(ctx)
	})
	return err
}

// Cancel discards the mutation.
func (c *Confirmation) Cancel() {
	c.once.Do(func() { c.done.Store(true) })
}

// Decided reports whether Accept or Cancel has been called.
func (c *Confirmation) Decided() bool {
	return c.done.Load()
}

// RequestToggle prepares an enable/disable of key. Nothing is sent until the
// returned Confirmation is accepted. send receives the desired new state and,
// once the backend confirms, set stores that same state locally.
func (s *Store[T]) RequestToggle(key, label, kind string, send func(ctx context.Context, enable bool) error, set func(item T, enable bool) T) (*Confirmation, error) {
	item, ok := s.Find(key)
	if !ok {
		return nil, fmt.Errorf("toggle %s: %w", key, apperrors.ErrNotFound)
	}

	action := "disable"
	if !item.IsActive() {
		action = "enable"
	}
	enable := action == "enable"

	c := &Confirmation{
		Title:  fmt.Sprintf("%s %s", capitalize(action), kind),
		Prompt: fmt.Sprintf("Are you sure you want to %s \"%s\"?", action, label),
		Action: capitalize(action),
	}
	c.accept = func(ctx context.Context) error {
		return s.Update(ctx, key, func(ctx context.Context) error {
			return send(ctx, enable)
		}, func(item T) T {
			return set(item, enable)
		})
	}
	return c, nil
}

// RequestDelete prepares a deletion of key behind a Confirmation.
func (s *Store[T]) RequestDelete(key, label, kind string, send SendFunc) (*Confirmation, error) {
	if _, ok := s.Find(key); !ok {
		return nil, fmt.Errorf("delete %s: %w", key, apperrors.ErrNotFound)
	}

	c := &Confirmation{
		Title:  "Delete " + kind,
		Prompt: fmt.Sprintf("Are you sure you want to delete \"%s\"? This action cannot be undone and will remove all associated data.", label),
		Action: "Delete",
	}
	c.accept = func(ctx context.Context) error {
		return s.Delete(ctx, key, send)
	}
	return c, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
