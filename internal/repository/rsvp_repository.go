package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"weddingsite/internal/model"
)

// RSVPRepository defines RSVP persistence operations.
type RSVPRepository interface {
	Create(ctx context.Context, rsvp *model.RSVP) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RSVP, error)
	FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*model.RSVP, error)
	ListAll(ctx context.Context) ([]model.RSVP, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type rsvpRepository struct {
	db *gorm.DB
}

// NewRSVPRepository creates a new RSVP repository.
func NewRSVPRepository(db *gorm.DB) RSVPRepository {
	return &rsvpRepository{db: db}
}

func (r *rsvpRepository) Create(ctx context.Context, rsvp *model.RSVP) error {
	return r.db.WithContext(ctx).Create(rsvp).Error
}

func (r *rsvpRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RSVP, error) {
	var rsvp model.RSVP
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rsvp).Error; err != nil {
		return nil, err
	}
	return &rsvp, nil
}

// FindLatestByUserID tolerates duplicate rows by taking the newest one.
func (r *rsvpRepository) FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*model.RSVP, error) {
	var rows []model.RSVP
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// ListAll returns every record, newest first.
func (r *rsvpRepository) ListAll(ctx context.Context) ([]model.RSVP, error) {
	var rows []model.RSVP
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateColumns writes exactly the given columns, zero values included.
func (r *rsvpRepository) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.RSVP{}).
		Where("id = ?", id).
		Updates(columns).Error
}

func (r *rsvpRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.RSVP{}).Error
}
