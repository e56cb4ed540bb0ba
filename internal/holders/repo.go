package holders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/internal/repo"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// Repository manages holder account rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, holder *models.Holder) error
	FindByEmail(ctx context.Context, email string) (*models.Holder, error)
	FindByAddress(ctx context.Context, address string) (*models.Holder, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a holder repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, holder *models.Holder) error {
	return r.DB(ctx).Create(holder).Error
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Holder, error) {
	var holder models.Holder
	if err := r.DB(ctx).
		Where("lower(email) = lower(?)", email).
		First(&holder).Error; err != nil {
		return nil, err
	}
	return &holder, nil
}

func (r *repository) FindByAddress(ctx context.Context, address string) (*models.Holder, error) {
	var holder models.Holder
	if err := r.DB(ctx).
		Where("address = ?", address).
		First(&holder).Error; err != nil {
		return nil, err
	}
	return &holder, nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.Holder{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}
