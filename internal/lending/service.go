package lending

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

// ServiceParams groups dependencies for the lending service.
type ServiceParams struct {
	DBClient    *dbpkg.Client
	LoanRepo    Repository
	CatalogRepo catalog.Repository
	Outbox      *outbox.Service
	Metrics     *metrics.LedgerMetrics
}

// Service exposes the single-slot borrow/return flow.
type Service interface {
	BorrowBook(ctx context.Context, holderAddress string, bookID uint64) (*models.LoanRecord, error)
	ReturnBook(ctx context.Context, holderAddress string, bookID uint64) error
	GetLoan(ctx context.Context, holderAddress string) (*models.LoanRecord, error)
}

type service struct {
	dbClient    *dbpkg.Client
	loanRepo    Repository
	catalogRepo catalog.Repository
	outbox      *outbox.Service
	metrics     *metrics.LedgerMetrics
}

// NewService builds a lending service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DBClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.LoanRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan repo is required")
	}
	if params.CatalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	return &service{
		dbClient:    params.DBClient,
		loanRepo:    params.LoanRepo,
		catalogRepo: params.CatalogRepo,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
	}, nil
}

// BorrowBook snapshots the live catalog row into the holder's loan slot.
// The holding guard runs before the existence guard; a holder with an active
// loan gets ALREADY_HOLDING even for a book that does not exist.
func (s *service) BorrowBook(ctx context.Context, holderAddress string, bookID uint64) (*models.LoanRecord, error) {
	start := time.Now()
	record, err := s.borrowBook(ctx, holderAddress, bookID)
	s.observe("borrow_book", start, err)
	return record, err
}

func (s *service) borrowBook(ctx context.Context, holderAddress string, bookID uint64) (*models.LoanRecord, error) {
	if holderAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "holder address is required")
	}

	var record *models.LoanRecord
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txLoans := s.loanRepo.WithTx(tx)
		if _, err := txLoans.FindForUpdate(ctx, holderAddress); err == nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyHolding, "holder already has an active loan")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan record")
		}

		book, err := s.findActiveBook(ctx, tx, bookID)
		if err != nil {
			return err
		}

		now := time.Now()
		record = &models.LoanRecord{
			HolderAddress: holderAddress,
			Snapshot:      models.SnapshotOf(book),
			BorrowedAt:    now,
		}
		if err := txLoans.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan record")
		}
		event := outbox.DomainEvent{
			EventKind:     enums.EventBookBorrowed,
			AggregateType: enums.AggregateLoan,
			BookID:        book.ID,
			Version:       1,
			Actor:         holderActor(holderAddress),
			OccurredAt:    now,
			Data: payloads.BookBorrowedEvent{
				BookID:    book.ID,
				Borrower:  holderAddress,
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

// ReturnBook clears the loan slot when the stored snapshot still equals the
// live row exactly. Removal since borrowing reads as NOT_FOUND, any other
// divergence as WRONG_BOOK.
func (s *service) ReturnBook(ctx context.Context, holderAddress string, bookID uint64) error {
	start := time.Now()
	err := s.returnBook(ctx, holderAddress, bookID)
	s.observe("return_book", start, err)
	return err
}

func (s *service) returnBook(ctx context.Context, holderAddress string, bookID uint64) error {
	if holderAddress == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "holder address is required")
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txLoans := s.loanRepo.WithTx(tx)
		record, err := txLoans.FindForUpdate(ctx, holderAddress)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotHolding, "holder has no active loan")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan record")
		}

		book, err := s.findActiveBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if record.Snapshot.BookID != bookID || !record.Snapshot.Matches(book) {
			return pkgerrors.New(pkgerrors.CodeWrongBook, "loan record does not match the live catalog entry")
		}

		if err := txLoans.Delete(ctx, holderAddress); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear loan record")
		}
		now := time.Now()
		event := outbox.DomainEvent{
			EventKind:     enums.EventBookReturned,
			AggregateType: enums.AggregateLoan,
			BookID:        book.ID,
			Version:       1,
			Actor:         holderActor(holderAddress),
			OccurredAt:    now,
			Data: payloads.BookReturnedEvent{
				BookID:    book.ID,
				Borrower:  holderAddress,
				Timestamp: now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

// GetLoan reads the holder's active loan, if any.
func (s *service) GetLoan(ctx context.Context, holderAddress string) (*models.LoanRecord, error) {
	record, err := s.loanRepo.Find(ctx, holderAddress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active loan")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan record")
	}
	return record, nil
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
