package ledger

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookhaven/bookledger-backend/internal/repo"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// Repository manages the ledger_settings singleton row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.LedgerSettings, error)
	GetForUpdate(ctx context.Context) (*models.LedgerSettings, error)
	Create(ctx context.Context, settings *models.LedgerSettings) error
	SetNextBookID(ctx context.Context, next uint64) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Get(ctx context.Context) (*models.LedgerSettings, error) {
	var settings models.LedgerSettings
	if err := r.DB(ctx).
		Where("id = ?", models.LedgerSettingsID).
		First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetForUpdate row-locks the settings so concurrent id allocations serialize.
func (r *repository) GetForUpdate(ctx context.Context) (*models.LedgerSettings, error) {
	var settings models.LedgerSettings
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", models.LedgerSettingsID).
		First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) Create(ctx context.Context, settings *models.LedgerSettings) error {
	return r.DB(ctx).Create(settings).Error
}

func (r *repository) SetNextBookID(ctx context.Context, next uint64) error {
	return r.DB(ctx).
		Model(&models.LedgerSettings{}).
		Where("id = ?", models.LedgerSettingsID).
		Update("next_book_id", next).Error
}
