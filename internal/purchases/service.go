package purchases

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/internal/catalog"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	"github.com/bookhaven/bookledger-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/metrics"
	"github.com/bookhaven/bookledger-backend/pkg/outbox"
	"github.com/bookhaven/bookledger-backend/pkg/outbox/payloads"
)

// Each buy and refund moves exactly one copy.
const unitQuantity = 1

// ServiceParams groups dependencies for the purchases service.
type ServiceParams struct {
	DBClient    *dbpkg.Client
	Repo        Repository
	CatalogRepo catalog.Repository
	Outbox      *outbox.Service
	Metrics     *metrics.LedgerMetrics
}

// Service exposes the single-slot buy/refund flow and the sales counter read.
type Service interface {
	BuyBook(ctx context.Context, holderAddress string, bookID uint64) (*models.PurchaseRecord, error)
	RefundBook(ctx context.Context, holderAddress string, bookID uint64) (*models.RefundRecord, error)
	GetPurchase(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error)
	GetRefundedBook(ctx context.Context, holderAddress string) (*models.RefundRecord, error)
	GetSales(ctx context.Context, bookID uint64) (int64, error)
}

type service struct {
	dbClient    *dbpkg.Client
	repo        Repository
	catalogRepo catalog.Repository
	outbox      *outbox.Service
	metrics     *metrics.LedgerMetrics
}

// NewService builds a purchases service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DBClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchases repo is required")
	}
	if params.CatalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	return &service{
		dbClient:    params.DBClient,
		repo:        params.Repo,
		catalogRepo: params.CatalogRepo,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
	}, nil
}

// BuyBook snapshots the live catalog row into the holder's purchase slot,
// overwriting any prior purchase, and bumps the book's sales counter.
func (s *service) BuyBook(ctx context.Context, holderAddress string, bookID uint64) (*models.PurchaseRecord, error) {
	start := time.Now()
	record, err := s.buyBook(ctx, holderAddress, bookID)
	s.observe("buy_book", start, err)
	return record, err
}

func (s *service) buyBook(ctx context.Context, holderAddress string, bookID uint64) (*models.PurchaseRecord, error) {
	if holderAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "holder address is required")
	}

	var record *models.PurchaseRecord
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		book, err := s.findActiveBook(ctx, tx, bookID)
		if err != nil {
			return err
		}

		txRepo := s.repo.WithTx(tx)
		now := time.Now()
		record = &models.PurchaseRecord{
			HolderAddress: holderAddress,
			Snapshot:      models.SnapshotOf(book),
			PurchasedAt:   now,
		}
		if err := txRepo.UpsertPurchase(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write purchase record")
		}
		if err := txRepo.IncrementSales(ctx, book.ID, unitQuantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment sales counter")
		}
		event := outbox.DomainEvent{
			EventKind:     enums.EventBookBought,
			AggregateType: enums.AggregatePurchase,
			BookID:        book.ID,
			Version:       1,
			Actor:         holderActor(holderAddress),
			OccurredAt:    now,
			Data: payloads.BookBoughtEvent{
				BookID:    book.ID,
				Buyer:     holderAddress,
				Quantity:  unitQuantity,
				Timestamp: now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RefundBook clears the purchase slot when the stored snapshot still equals
// the live row exactly, writes the refund record, and decrements the sales
// counter. Removal since buying reads as NOT_FOUND, any other divergence as
// WRONG_BOOK.
func (s *service) RefundBook(ctx context.Context, holderAddress string, bookID uint64) (*models.RefundRecord, error) {
	start := time.Now()
	record, err := s.refundBook(ctx, holderAddress, bookID)
	s.observe("refund_book", start, err)
	return record, err
}

func (s *service) refundBook(ctx context.Context, holderAddress string, bookID uint64) (*models.RefundRecord, error) {
	if holderAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "holder address is required")
	}

	var refund *models.RefundRecord
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		purchase, err := txRepo.FindPurchaseForUpdate(ctx, holderAddress)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotPurchased, "holder has no active purchase")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase record")
		}

		book, err := s.findActiveBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if purchase.Snapshot.BookID != bookID || !purchase.Snapshot.Matches(book) {
			return pkgerrors.New(pkgerrors.CodeWrongBook, "purchase record does not match the live catalog entry")
		}

		if err := txRepo.DeletePurchase(ctx, holderAddress); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear purchase record")
		}
		now := time.Now()
		refund = &models.RefundRecord{
			HolderAddress: holderAddress,
			Snapshot:      purchase.Snapshot,
			RefundedAt:    now,
		}
		if err := txRepo.UpsertRefund(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write refund record")
		}
		if err := txRepo.IncrementSales(ctx, book.ID, -unitQuantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement sales counter")
		}
		event := outbox.DomainEvent{
			EventKind:     enums.EventBookRefunded,
			AggregateType: enums.AggregatePurchase,
			BookID:        book.ID,
			Version:       1,
			Actor:         holderActor(holderAddress),
			OccurredAt:    now,
			Data: payloads.BookRefundedEvent{
				BookID:    book.ID,
				Buyer:     holderAddress,
				Quantity:  unitQuantity,
				Timestamp: now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// GetPurchase reads the holder's active purchase, if any.
func (s *service) GetPurchase(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error) {
	record, err := s.repo.FindPurchase(ctx, holderAddress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active purchase")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase record")
	}
	return record, nil
}

// GetRefundedBook reads the holder's most recent refund record.
func (s *service) GetRefundedBook(ctx context.Context, holderAddress string) (*models.RefundRecord, error) {
	record, err := s.repo.FindRefund(ctx, holderAddress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no refund record")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund record")
	}
	return record, nil
}

// GetSales returns the net active purchase count for a book. Unknown ids read
// as zero; existence is not checked.
func (s *service) GetSales(ctx context.Context, bookID uint64) (int64, error) {
	count, err := s.repo.GetSalesCount(ctx, bookID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales counter")
	}
	return count, nil
}

func (s *service) findActiveBook(ctx context.Context, tx *gorm.DB, bookID uint64) (*models.Book, error) {
	txBooks := s.catalogRepo.WithTx(tx)
	book, err := txBooks.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog entry")
	}
	if book.Removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return book, nil
}

func (s *service) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(operation, string(pkgerrors.As(err).Code()))
		return
	}
	s.metrics.IncSuccess(operation)
}

func holderActor(address string) *outbox.ActorRef {
	return &outbox.ActorRef{Address: address, Role: string(enums.RoleHolder)}
}
