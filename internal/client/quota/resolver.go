// Package quota resolves how many chatbots an account may own and how many
// it already has.
package quota

import (
	"context"
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/pkg/logger"
)

const (
	DefaultUserLimit         = 1
	DefaultOrganizationLimit = 2
	DefaultCacheSize         = 64
)

// Backend is the part of the API the resolver needs.
type Backend interface {
	OrganizationLimit(ctx context.Context, id string) (limit int, found bool, err error)
	ListChatbots(ctx context.Context) ([]api.Chatbot, error)
}

// Options holds the fallback limits.
type Options struct {
	UserDefault         int
	OrganizationDefault int
	CacheSize           int
}

// Resolver computes limits and usage. Organization limits are cached until
// invalidated.
type Resolver struct {
	backend Backend
	opts    Options
	cache   *lru.Cache[string, int]
	log     zerolog.Logger
}

// NewResolver creates a resolver. Zero options take the package defaults.
func NewResolver(backend Backend, opts Options) *Resolver {
	if opts.UserDefault <= 0 {
		opts.UserDefault = DefaultUserLimit
	}
	if opts.OrganizationDefault <= 0 {
		opts.OrganizationDefault = DefaultOrganizationLimit
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, int](opts.CacheSize)

	return &Resolver{
		backend: backend,
		opts:    opts,
		cache:   cache,
		log:     logger.WithComponent("quota"),
	}
}

// Limit returns the chatbot limit of user. It never fails: lookup errors
// fall back to the user's own limit.
func (r *Resolver) Limit(ctx context.Context, user api.User) int {
	if user.OrganizationID == "" {
		return r.userLimit(user)
	}

	if limit, ok := r.cache.Get(user.OrganizationID); ok {
		return limit
	}

	limit, found, err := r.backend.OrganizationLimit(ctx, user.OrganizationID)
	if err != nil {
		r.log.Warn().Err(err).Str("organization_id", user.OrganizationID).Msg("Organization lookup failed, using account limit")
		return r.userLimit(user)
	}
	if !found {
		limit = r.opts.OrganizationDefault
	}
	r.cache.Add(user.OrganizationID, limit)
	return limit
}

func (r *Resolver) userLimit(user api.User) int {
	if user.ChatbotsLimit > 0 {
		return user.ChatbotsLimit
	}
	return r.opts.UserDefault
}

// Invalidate forgets the cached limit of an organization.
func (r *Resolver) Invalidate(organizationID string) {
	r.cache.Remove(organizationID)
}

// Purge forgets every cached limit.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

// Usage fetches the chatbot count and the limit concurrently. A list answer
// the backend marked unsuccessful counts as no chatbots.
func (r *Resolver) Usage(ctx context.Context, user api.User) (Usage, error) {
	var u Usage
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bots, err := r.backend.ListChatbots(ctx)
		if unsuccessful(err) {
			r.log.Debug().Err(err).Msg("Chatbot list unsuccessful, counting none")
			return nil
		}
		if err != nil {
			return err
		}
		u.Current = len(bots)
		return nil
	})
	g.Go(func() error {
		u.Limit = r.Limit(ctx, user)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// unsuccessful reports a transport-OK answer with success=false.
func unsuccessful(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 200 && apiErr.StatusCode < 300
}

// Usage is the chatbot count against the limit.
type Usage struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
}

// Percent is round(current/limit*100). It exceeds 100 when over the limit.
func (u Usage) Percent() int {
	if u.Limit <= 0 {
		return 0
	}
	return int(math.Round(float64(u.Current) / float64(u.Limit) * 100))
}

// BarPercent is Percent clamped to 100, for progress bars.
func (u Usage) BarPercent() int {
	return min(u.Percent(), 100)
}

// Reached reports whether no more chatbots may be created.
func (u Usage) Reached() bool {
	return u.Current >= u.Limit
}

// CanCreate reports whether the editor may proceed. Editing an existing
// chatbot is never blocked.
func CanCreate(u Usage, editing bool) bool {
	return editing || !u.Reached()
}
