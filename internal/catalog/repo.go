package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/internal/repo"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// Repository manages persistence for catalog rows. Removed rows stay in the
// table with the removed flag set; their ids are never reissued.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, book *models.Book) error
	FindByID(ctx context.Context, id uint64) (*models.Book, error)
	MarkRemoved(ctx context.Context, id uint64, at time.Time) error
	ListActive(ctx context.Context) ([]models.Book, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, book *models.Book) error {
	return r.DB(ctx).Create(book).Error
}

// FindByID returns the row whether or not it has been removed. Callers decide
// how removal surfaces.
func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Book, error) {
	var book models.Book
	if err := r.DB(ctx).
		Where("id = ?", id).
		First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) MarkRemoved(ctx context.Context, id uint64, at time.Time) error {
	return r.DB(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"removed":    true,
			"removed_at": at,
		}).Error
}

func (r *repository) ListActive(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.DB(ctx).
		Where("removed = ?", false).
		Order("id ASC").
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}
