package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CurrentSlot is the slot of the one active session.
const CurrentSlot = "current"

// SessionRecord stores a signed-in session. Only the CurrentSlot row is used.
type SessionRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Slot      string         `gorm:"uniqueIndex;not null"`
	Token     string         `gorm:"not null"`
	Email     string         `gorm:"index"`
	Role      string
	Profile   datatypes.JSON `gorm:"type:json"` // user as returned by the backend
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate hook to set UUID if not provided
func (s *SessionRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name
func (SessionRecord) TableName() string {
	return "sessions"
}

// Preference is a JSON encoded user setting, such as the chatbot view mode.
type Preference struct {
	Key       string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"type:json"`
	UpdatedAt time.Time
}

// TableName specifies the table name
func (Preference) TableName() string {
	return "preferences"
}
