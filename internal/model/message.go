package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GuestMessage is a message-wall submission. Approved and IsPublic are
// decided by storage defaults and moderators, never by the submitter.
type GuestMessage struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:char(36);index;not null"`
	Text        string    `json:"text" gorm:"type:text;not null"`
	DisplayName string    `json:"display_name" gorm:"size:255"`
	Approved    bool      `json:"approved" gorm:"default:false"`
	IsPublic    bool      `json:"is_public" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// TableName overrides the default pluralisation.
func (GuestMessage) TableName() string {
	return "guest_messages"
}

// BeforeCreate sets UUID before creating the record.
func (m *GuestMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
