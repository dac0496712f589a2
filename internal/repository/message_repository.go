package repository

import (
	"context"

	"gorm.io/gorm"

	"weddingsite/internal/model"
)

// MessageRepository defines guest message persistence operations.
type MessageRepository interface {
	Create(ctx context.Context, msg *model.GuestMessage) error
	ListPublic(ctx context.Context, limit int) ([]model.GuestMessage, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts the message and reloads it so storage defaults are visible.
func (r *messageRepository) Create(ctx context.Context, msg *model.GuestMessage) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Omit("approved", "is_public").Create(msg).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", msg.ID).First(msg).Error
}

// ListPublic returns approved public messages, newest first.
func (r *messageRepository) ListPublic(ctx context.Context, limit int) ([]model.GuestMessage, error) {
	var rows []model.GuestMessage
	q := r.db.WithContext(ctx).
		Where("approved = ? AND is_public = ?", true, true).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
