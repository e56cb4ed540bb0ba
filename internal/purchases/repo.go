package purchases

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookhaven/bookledger-backend/internal/repo"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// Repository manages the single-slot purchase records, the per-holder refund
// records, and the per-book sales counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPurchase(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error)
	FindPurchaseForUpdate(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error)
	UpsertPurchase(ctx context.Context, record *models.PurchaseRecord) error
	DeletePurchase(ctx context.Context, holderAddress string) error
	FindRefund(ctx context.Context, holderAddress string) (*models.RefundRecord, error)
	UpsertRefund(ctx context.Context, record *models.RefundRecord) error
	GetSalesCount(ctx context.Context, bookID uint64) (int64, error)
	IncrementSales(ctx context.Context, bookID uint64, delta int64) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a purchases repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindPurchase(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error) {
	var record models.PurchaseRecord
	if err := r.DB(ctx).
		Where("holder_address = ?", holderAddress).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindPurchaseForUpdate locks the holder's slot so concurrent buy/refund
// calls for the same holder serialize.
func (r *repository) FindPurchaseForUpdate(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error) {
	var record models.PurchaseRecord
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("holder_address = ?", holderAddress).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertPurchase overwrites any existing slot for the holder. A second buy
// before a refund silently replaces the first.
func (r *repository) UpsertPurchase(ctx context.Context, record *models.PurchaseRecord) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "holder_address"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

func (r *repository) DeletePurchase(ctx context.Context, holderAddress string) error {
	return r.DB(ctx).
		Where("holder_address = ?", holderAddress).
		Delete(&models.PurchaseRecord{}).Error
}

func (r *repository) FindRefund(ctx context.Context, holderAddress string) (*models.RefundRecord, error) {
	var record models.RefundRecord
	if err := r.DB(ctx).
		Where("holder_address = ?", holderAddress).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertRefund overwrites the holder's previous refund record.
func (r *repository) UpsertRefund(ctx context.Context, record *models.RefundRecord) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "holder_address"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

// GetSalesCount returns zero for books that have never sold.
func (r *repository) GetSalesCount(ctx context.Context, bookID uint64) (int64, error) {
	var counter models.SalesCounter
	if err := r.DB(ctx).
		Where("book_id = ?", bookID).
		First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.SoldCount, nil
}

// IncrementSales adjusts the counter by delta, clamping at zero. The seed
// insert tolerates an existing row so concurrent first sales of the same book
// cannot race on Create, and the clamped adjustment is a single atomic update.
func (r *repository) IncrementSales(ctx context.Context, bookID uint64, delta int64) error {
	db := r.DB(ctx)
	seed := models.SalesCounter{BookID: bookID}
	if err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error; err != nil {
		return err
	}
	return db.Model(&models.SalesCounter{}).
		Where("book_id = ?", bookID).
		Update("sold_count", gorm.Expr(
			"CASE WHEN sold_count + ? < 0 THEN 0 ELSE sold_count + ? END",
			delta, delta,
		)).Error
}
