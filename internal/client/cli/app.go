package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/config"
	"github.com/botdesk/botdesk/internal/client/dashboard/collection"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
	"github.com/botdesk/botdesk/internal/client/dashboard/metrics"
	"github.com/botdesk/botdesk/internal/client/quota"
	"github.com/botdesk/botdesk/internal/client/session"
	"github.com/botdesk/botdesk/internal/db"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/logger"
)

// App is everything a command needs, built once per invocation.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Client   *api.Client
	Session  *session.Manager
	Bus      *events.Bus
	Quota    *quota.Resolver
	Calls    *metrics.CallRecorder
	Sessions *db.SessionRepository
}

type appKey struct{}

// WithApp stores app in ctx.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// AppFromContext returns the app stored by WithApp.
func AppFromContext(ctx context.Context) *App {
	if app, ok := ctx.Value(appKey{}).(*App); ok {
		return app
	}
	return nil
}

// NewApp connects the local store, builds the API client and restores the
// saved session.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := ensureStoreDir(cfg.Store); err != nil {
		return nil, err
	}
	conn, err := db.Connect(db.Config{
		Driver:      cfg.Store.Driver,
		Host:        cfg.Store.Host,
		Port:        cfg.Store.Port,
		Database:    storeDatabase(cfg.Store),
		Username:    cfg.Store.Username,
		Password:    cfg.Store.Password,
		SSLMode:     cfg.Store.SSLMode,
		SQLLogLevel: sqlLogLevel(cfg.Logging.Level),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(conn); err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	calls := metrics.NewCallRecorder()
	client := api.New(api.Config{
		BaseURL:     cfg.API.URL,
		Timeout:     cfg.API.Timeout,
		ChatTimeout: cfg.API.ChatTimeout,
		UserAgent:   "botdesk/" + version,
		Observer:    calls.Observe,
	})

	bus := events.NewBus()
	repo := db.NewSessionRepository(conn)
	mgr := session.NewManager(client, repo, bus, session.Options{StatusInterval: cfg.Auth.StatusInterval})
	if err := mgr.Restore(ctx); err != nil {
		bus.Close()
		return nil, err
	}

	resolver := quota.NewResolver(client, quota.Options{
		UserDefault:         cfg.Quota.UserDefault,
		OrganizationDefault: cfg.Quota.OrganizationDefault,
		CacheSize:           cfg.Quota.CacheSize,
	})

	return &App{
		Config:   cfg,
		DB:       conn,
		Client:   client,
		Session:  mgr,
		Bus:      bus,
		Quota:    resolver,
		Calls:    calls,
		Sessions: repo,
	}, nil
}

// Close stops background work and releases the local store.
func (a *App) Close() error {
	a.Session.StopMonitor()
	a.Bus.Close()
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RequireUser returns the signed-in user.
func (a *App) RequireUser() (api.User, error) {
	user, ok := a.Session.Current()
	if !ok {
		return api.User{}, fmt.Errorf("%w: run 'botdesk auth login' first", apperrors.ErrNotAuthenticated)
	}
	return user, nil
}

// RequirePath checks the signed-in role may open a dashboard path.
func (a *App) RequirePath(path string) (api.User, error) {
	user, err := a.RequireUser()
	if err != nil {
		return user, err
	}
	if !session.NavigationFor(session.RoleOf(user)).Allows(path) {
		return user, fmt.Errorf("%w: %s is not available to %s accounts", apperrors.ErrUnauthorized, path, session.RoleOf(user))
	}
	return user, nil
}

// StoreOptions are the collection options from the view config.
func (a *App) StoreOptions() []collection.Option {
	return []collection.Option{
		collection.WithPageSize(a.Config.View.PageSize),
		collection.WithDebounce(a.Config.View.Debounce),
	}
}

// WatchSession runs the session monitor and cancels the returned context
// when the session is cleared, e.g. after a forced logout.
func (a *App) WatchSession(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sub := a.Bus.Subscribe(events.EventSessionChanged, events.EventAccountDisabled)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-sub:
				if !ok {
					return
				}
				switch d := e.Data.(type) {
				case events.AccountDisabledEvent:
					logger.WarnEvent().Str("redirect_to", d.RedirectTo).Msg(d.Message)
					cancel()
				case events.SessionEvent:
					if !d.LoggedIn {
						logger.WarnEvent().Str("reason", d.Reason).Msg("Signed out")
						cancel()
					}
				}
			}
		}
	}()

	if err := a.Session.StartMonitor(ctx); err != nil && !errors.Is(err, apperrors.ErrNotAuthenticated) {
		logger.WarnEvent().Err(err).Msg("Session monitor not started")
	}

	return ctx, func() {
		a.Session.StopMonitor()
		a.Bus.Unsubscribe(sub)
		cancel()
	}
}

func storeDatabase(s config.StoreConfig) string {
	if s.Driver == "" || s.Driver == "sqlite" {
		return s.Path
	}
	return s.Database
}

func ensureStoreDir(s config.StoreConfig) error {
	path := storeDatabase(s)
	if (s.Driver != "" && s.Driver != "sqlite") || path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create store dir: %w", err)
	}
	return nil
}

// sqlLogLevel keeps gorm quiet unless the CLI itself is debugging.
func sqlLogLevel(level string) string {
	if level == "debug" {
		return "info"
	}
	return "silent"
}
