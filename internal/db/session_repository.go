package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/botdesk/botdesk/internal/client/session"
	"github.com/botdesk/botdesk/internal/db/models"
)

// SessionRepository persists session state with gorm.
type SessionRepository struct {
	db *gorm.DB
}

var _ session.Repository = (*SessionRepository)(nil)

// NewSessionRepository returns a repository over a migrated database.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Load implements session.Repository.
func (r *SessionRepository) Load(ctx context.Context) (*session.State, error) {
	var rec models.SessionRecord
	err := r.db.WithContext(ctx).Where("slot = ?", models.CurrentSlot).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	st := &session.State{Token: rec.Token}
	if len(rec.Profile) > 0 {
		if err := json.Unmarshal(rec.Profile, &st.User); err != nil {
			return nil, fmt.Errorf("stored profile is corrupt: %w", err)
		}
	}
	return st, nil
}

// Save implements session.Repository.
func (r *SessionRepository) Save(ctx context.Context, s session.State) error {
	user, err := json.Marshal(s.User)
	if err != nil {
		return err
	}

	rec := models.SessionRecord{
		Slot:    models.CurrentSlot,
		Token:   s.Token,
		Email:   s.User.Email,
		Role:    session.RoleOf(s.User).String(),
		Profile: datatypes.JSON(user),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "email", "role", "profile", "updated_at"}),
	}).Create(&rec).Error
}

// Clear implements session.Repository.
func (r *SessionRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("slot = ?", models.CurrentSlot).Delete(&models.SessionRecord{}).Error
}

// GetPreference implements session.Repository.
func (r *SessionRepository) GetPreference(ctx context.Context, key string, dst interface{}) (bool, error) {
	var pref models.Preference
	err := r.db.WithContext(ctx).Where(&models.Preference{Key: key}).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(pref.Value, dst)
}

// SetPreference implements session.Repository.
func (r *SessionRepository) SetPreference(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	pref := models.Preference{Key: key, Value: datatypes.JSON(raw)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
}

// Stored returns the raw session row, for `botdesk auth whoami --verbose`.
func (r *SessionRepository) Stored(ctx context.Context) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := r.db.WithContext(ctx).Where("slot = ?", models.CurrentSlot).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
