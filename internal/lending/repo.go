package lending

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookhaven/bookledger-backend/internal/repo"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// Repository manages the single-slot loan records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, holderAddress string) (*models.LoanRecord, error)
	FindForUpdate(ctx context.Context, holderAddress string) (*models.LoanRecord, error)
	Create(ctx context.Context, record *models.LoanRecord) error
	Delete(ctx context.Context, holderAddress string) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a loan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Find(ctx context.Context, holderAddress string) (*models.LoanRecord, error) {
	var record models.LoanRecord
	if err := r.DB(ctx).
		Where("holder_address = ?", holderAddress).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindForUpdate locks the holder's slot so concurrent borrow/return calls for
// the same holder serialize.
func (r *repository) FindForUpdate(ctx context.Context, holderAddress string) (*models.LoanRecord, error) {
	var record models.LoanRecord
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("holder_address = ?", holderAddress).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.LoanRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *repository) Delete(ctx context.Context, holderAddress string) error {
	return r.DB(ctx).
		Where("holder_address = ?", holderAddress).
		Delete(&models.LoanRecord{}).Error
}
