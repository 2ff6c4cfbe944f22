package collection

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/botdesk/botdesk/pkg/logger"
)

// State is the lifecycle of a collection.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateMutating
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateMutating:
		return "mutating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultDebounce is the search debounce window.
const DefaultDebounce = 300 * time.Millisecond

// Query is the user's current view criteria.
type Query struct {
	Search  string
	Status  StatusFilter
	Page    int
	PerPage int
}

// View is the derived, render-ready state of a Store.
type View[T Item] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalPages int
	TotalCount int // items after filtering
	Total      int // items before filtering
	Pages      []int
	Ellipsis   bool
	Query      Query
	State      State
	Err        error
}

// FetchFunc loads the full collection from the backend.
type FetchFunc[T Item] func(ctx context.Context) ([]T, error)

// Option configures a Store.
type Option func(*options)

type options struct {
	debounce time.Duration
	perPage  int
	name     string
}

// WithDebounce overrides the search debounce window.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithPageSize sets the initial page size. Invalid sizes are ignored.
func WithPageSize(n int) Option {
	return func(o *options) {
		if ValidPageSize(n) {
			o.perPage = n
		}
	}
}

// WithName tags the store's log lines.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Store holds a fully fetched collection and derives the visible page from
// the current query. All methods are safe for concurrent use.
type Store[T Item] struct {
	mu        sync.Mutex
	items     []T
	query     Query
	state     State
	err       error
	pending   map[string]bool
	view      View[T]
	subs      []func(View[T])
	debounce  time.Duration
	debouncer Debouncer
	log       zerolog.Logger
}

// NewStore creates an idle, empty store.
func NewStore[T Item](opts ...Option) *Store[T] {
	o := options{debounce: DefaultDebounce, perPage: DefaultPageSize, name: "collection"}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		query:    Query{Status: StatusAll, Page: 1, PerPage: o.perPage},
		pending:  make(map[string]bool),
		debounce: o.debounce,
		log:      logger.WithComponent(o.name),
	}
	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()
	return s
}

// Subscribe registers fn to receive every recomputed view.
func (s *Store[T]) Subscribe(fn func(View[T])) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// View returns the latest derived view.
func (s *Store[T]) View() View[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Items returns a copy of the full, unfiltered collection.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

// Find returns the item with key.
func (s *Store[T]) Find(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(key)
	if i < 0 {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// InProgress reports whether a mutation on key is awaiting the backend.
func (s *Store[T]) InProgress(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[key]
}

// SetSearch records the search text and recomputes after the debounce
// window. Only the last call inside the window takes effect.
func (s *Store[T]) SetSearch(q string) {
	s.mu.Lock()
	s.query.Search = q
	s.query.Page = 1
	s.mu.Unlock()

	s.debouncer.Trigger(s.debounce, s.Refresh)
}

// SetStatus changes the status filter and recomputes immediately.
func (s *Store[T]) SetStatus(f StatusFilter) {
	s.update(func(q *Query) {
		q.Status = f
		q.Page = 1
	})
}

// SetPage moves to page and recomputes immediately.
func (s *Store[T]) SetPage(page int) {
	s.update(func(q *Query) { q.Page = page })
}

// SetPageSize changes the page size and recomputes immediately.
// Sizes outside PageSizes are ignored.
func (s *Store[T]) SetPageSize(n int) {
	if !ValidPageSize(n) {
		return
	}
	s.update(func(q *Query) {
		q.PerPage = n
		q.Page = 1
	})
}

// Refresh recomputes the view from the current query, dropping any pending
// debounced search recompute.
func (s *Store[T]) Refresh() {
	s.update(func(*Query) {})
}

func (s *Store[T]) update(mutate func(*Query)) {
	s.debouncer.Cancel()
	s.mu.Lock()
	mutate(&s.query)
	s.recomputeLocked()
	s.notifyAndUnlock()
}

// Load fetches the full collection. On failure the previous items stay in
// place and the store moves to StateError.
func (s *Store[T]) Load(ctx context.Context, fetch FetchFunc[T]) error {
	s.setState(StateLoading, nil)

	items, err := fetch(ctx)

	s.mu.Lock()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load collection, keeping previous items")
		s.state = StateError
		s.err = err
	} else {
		s.log.Debug().Int("count", len(items)).Msg("Collection loaded")
		s.items = items
		s.state = StateReady
		s.err = nil
	}
	s.recomputeLocked()
	s.notifyAndUnlock()
	return err
}

// Replace swaps in a new collection without a fetch.
func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	s.items = append([]T(nil), items...)
	s.state = StateReady
	s.err = nil
	s.recomputeLocked()
	s.notifyAndUnlock()
}

func (s *Store[T]) setState(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.err = err
	s.recomputeLocked()
	s.notifyAndUnlock()
}

func (s *Store[T]) indexLocked(key string) int {
	for i, it := range s.items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

// recomputeLocked derives the view. Page is clamped into [1, TotalPages] so
// a shrinking result never strands the user on an empty page.
func (s *Store[T]) recomputeLocked() {
	filtered := Filter(s.items, s.query.Search, s.query.Status)

	total := TotalPages(len(filtered), s.query.PerPage)
	if s.query.Page > total {
		s.query.Page = total
	}
	if s.query.Page < 1 {
		s.query.Page = 1
	}

	page := Paginate(filtered, s.query.Page, s.query.PerPage)
	pages, ellipsis := Window(page.Page, page.TotalPages)

	s.view = View[T]{
		Items:      page.Items,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages,
		TotalCount: page.TotalCount,
		Total:      len(s.items),
		Pages:      pages,
		Ellipsis:   ellipsis,
		Query:      s.query,
		State:      s.state,
		Err:        s.err,
	}
}

// notifyAndUnlock releases the lock before calling subscribers so they may
// read the store.
func (s *Store[T]) notifyAndUnlock() {
	view := s.view
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(view)
	}
}
