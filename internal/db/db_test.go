package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/session"
	"github.com/botdesk/botdesk/internal/db/models"
)

// setupTestDB creates a migrated in-memory SQLite database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect(Config{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

// TestConnect_SQLite tests SQLite database connection.
func TestConnect_SQLite(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

// TestConnect_SQLiteFile tests SQLite with file path.
func TestConnect_SQLiteFile(t *testing.T) {
	dbFile := t.TempDir() + "/test.db"

	db, err := Connect(Config{Driver: "SQLite", Database: dbFile})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	repo := NewSessionRepository(db)
	require.NoError(t, repo.Save(context.Background(), session.State{Token: "t1"}))

	// A second connection sees the row.
	db2, err := Connect(Config{Driver: "sqlite", Database: dbFile})
	require.NoError(t, err)
	st, err := NewSessionRepository(db2).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "t1", st.Token)
}

// TestConnect_UnsupportedDriver tests unsupported database drivers.
func TestConnect_UnsupportedDriver(t *testing.T) {
	for _, driver := range []string{"mysql", "invalid_db_driver", ""} {
		t.Run(driver, func(t *testing.T) {
			db, err := Connect(Config{Driver: driver, Database: "test"})
			assert.Error(t, err)
			assert.Nil(t, db)
			assert.Contains(t, err.Error(), "unsupported database driver")
		})
	}
}

// TestConnect_PostgreSQLDriverNames tests PostgreSQL driver name variations.
func TestConnect_PostgreSQLDriverNames(t *testing.T) {
	for _, driver := range []string{"postgres", "postgresql", "POSTGRES", "PostgreSQL"} {
		t.Run(driver, func(t *testing.T) {
			cfg := Config{
				Driver:   driver,
				Database: "test",
				Host:     "127.0.0.1",
				Port:     1,
				Username: "test",
				Password: "test",
				SSLMode:  "disable",
			}

			// No server is listening; only the driver name check matters.
			_, err := Connect(cfg)
			if err != nil {
				assert.NotContains(t, err.Error(), "unsupported database driver")
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"silent", logger.Silent},
		{"error", logger.Error},
		{"warn", logger.Warn},
		{"info", logger.Info},
		{"", logger.Silent},
		{"INFO", logger.Info},
		{"Warn", logger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logLevel(tt.in))
		})
	}
}

// TestAutoMigrate tests automatic migration.
func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)
	for _, table := range []string{"sessions", "preferences"} {
		assert.True(t, db.Migrator().HasTable(table), "table %s should exist", table)
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	user := api.User{ID: "u1", Email: "a@b.co", Role: "admin", ChatbotsLimit: 3}
	require.NoError(t, repo.Save(ctx, session.State{Token: "t1", User: user}))

	st, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "t1", st.Token)
	assert.Equal(t, user, st.User)

	// Saving again replaces the single row.
	user.Name = "Renamed"
	require.NoError(t, repo.Save(ctx, session.State{Token: "t2", User: user}))
	st, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", st.Token)
	assert.Equal(t, "Renamed", st.User.Name)

	rec, err := repo.Stored(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "a@b.co", rec.Email)
	assert.Equal(t, "admin", rec.Role)

	var count int64
	require.NoError(t, repo.db.Model(&models.SessionRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, repo.Clear(ctx))
	st, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	var mode string
	found, err := repo.GetPreference(ctx, session.PrefViewMode, &mode)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SetPreference(ctx, session.PrefViewMode, "table"))
	require.NoError(t, repo.SetPreference(ctx, session.PrefViewMode, "grid"))

	found, err = repo.GetPreference(ctx, session.PrefViewMode, &mode)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "grid", mode)

	consent := session.Consent{Accepted: true, Version: "1.0", SessionID: "s1"}
	require.NoError(t, repo.SetPreference(ctx, session.PrefCookieConsent, consent))
	var got session.Consent
	found, err = repo.GetPreference(ctx, session.PrefCookieConsent, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, consent, got)

	// Clearing the session keeps preferences.
	require.NoError(t, repo.Clear(ctx))
	found, err = repo.GetPreference(ctx, session.PrefViewMode, &mode)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestManagerOverSessionRepository(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	require.NoError(t, repo.Save(context.Background(), session.State{Token: "t1", User: api.User{ID: "u1"}}))

	m := session.NewManager(api.New(api.Config{BaseURL: "http://127.0.0.1:0"}), repo, nil, session.Options{})
	require.NoError(t, m.Restore(context.Background()))

	user, ok := m.Current()
	assert.True(t, ok)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "t1", m.Token())
}
