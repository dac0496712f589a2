package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile carries the admin flag for an identity. A missing row means the
// identity is not an admin; a null flag defers to the identity's metadata.
type Profile struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);uniqueIndex;not null"`
	IsAdmin   *bool     `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
