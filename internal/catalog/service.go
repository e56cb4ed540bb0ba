package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/internal/ledger"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	"github.com/bookhaven/bookledger-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/metrics"
	"github.com/bookhaven/bookledger-backend/pkg/outbox"
	"github.com/bookhaven/bookledger-backend/pkg/outbox/payloads"
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	DBClient  *dbpkg.Client
	Repo      Repository
	LedgerSvc ledger.Service
	Outbox    *outbox.Service
	Metrics   *metrics.LedgerMetrics
}

// Service exposes storekeeper catalog management and public reads.
type Service interface {
	AddBook(ctx context.Context, input AddBookInput) (*models.Book, error)
	RemoveBook(ctx context.Context, input RemoveBookInput) error
	GetBook(ctx context.Context, bookID uint64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
}

// AddBookInput carries the fields of a new catalog entry. The id is never
// supplied by the caller; it comes from the settings counter.
type AddBookInput struct {
	Title        string
	Author       string
	Price        uint64
	Stock        uint64
	ActorAddress string
}

// RemoveBookInput identifies the entry to retire.
type RemoveBookInput struct {
	BookID       uint64
	ActorAddress string
}

type service struct {
	dbClient  *dbpkg.Client
	repo      Repository
	ledgerSvc ledger.Service
	outbox    *outbox.Service
	metrics   *metrics.LedgerMetrics
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DBClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.LedgerSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger service is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	return &service{
		dbClient:  params.DBClient,
		repo:      params.Repo,
		ledgerSvc: params.LedgerSvc,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
	}, nil
}

// AddBook creates a catalog entry with the next sequential id and queues the
// book_added event in the same transaction.
func (s *service) AddBook(ctx context.Context, input AddBookInput) (*models.Book, error) {
	start := time.Now()
	book, err := s.addBook(ctx, input)
	s.observe("add_book", start, err)
	return book, err
}

func (s *service) addBook(ctx context.Context, input AddBookInput) (*models.Book, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(input.Author) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author is required")
	}
	if err := s.ensureStorekeeper(ctx, input.ActorAddress); err != nil {
		return nil, err
	}

	var book *models.Book
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		id, err := s.ledgerSvc.AllocateBookIDTx(ctx, tx)
		if err != nil {
			return err
		}
		book = &models.Book{
			ID:     id,
			Title:  input.Title,
			Author: input.Author,
			Price:  input.Price,
			Stock:  input.Stock,
		}
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, book); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create catalog entry")
		}
		now := time.Now()
		event := outbox.DomainEvent{
			EventKind:     enums.EventBookAdded,
			AggregateType: enums.AggregateCatalog,
			BookID:        book.ID,
			Version:       1,
			Actor:         storekeeperActor(input.ActorAddress),
			OccurredAt:    now,
			Data: payloads.BookAddedEvent{
				BookID:    book.ID,
				Title:     book.Title,
				Author:    book.Author,
				Timestamp: now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// RemoveBook retires a catalog entry. The row stays behind with the removed
// flag so the id is never reissued and held records can still fail the match.
func (s *service) RemoveBook(ctx context.Context, input RemoveBookInput) error {
	start := time.Now()
	err := s.removeBook(ctx, input)
	s.observe("remove_book", start, err)
	return err
}

func (s *service) removeBook(ctx context.Context, input RemoveBookInput) error {
	if err := s.ensureStorekeeper(ctx, input.ActorAddress); err != nil {
		return err
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		book, err := txRepo.FindByID(ctx, input.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog entry")
		}
		if book.Removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}

		now := time.Now()
		if err := txRepo.MarkRemoved(ctx, book.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove catalog entry")
		}
		event := outbox.DomainEvent{
			EventKind:     enums.EventBookRemoved,
			AggregateType: enums.AggregateCatalog,
			BookID:        book.ID,
			Version:       1,
			Actor:         storekeeperActor(input.ActorAddress),
			OccurredAt:    now,
			Data: payloads.BookRemovedEvent{
				BookID:    book.ID,
				Timestamp: now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

// GetBook returns an active catalog entry. Removed entries read as missing.
func (s *service) GetBook(ctx context.Context, bookID uint64) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, bookID)
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

// ListBooks returns one entry per id ever issued, in id order. Removed ids
// render as zero-valued entries so positions stay stable over time. The
// counter and the rows are read in one transaction so a concurrently added
// book cannot fall between the two reads.
func (s *service) ListBooks(ctx context.Context) ([]models.Book, error) {
	var (
		next   uint64
		active []models.Book
	)
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		next, err = s.ledgerSvc.NextBookIDTx(ctx, tx)
		if err != nil {
			return err
		}
		active, err = s.repo.WithTx(tx).ListActive(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog entries")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]models.Book, len(active))
	for _, book := range active {
		byID[book.ID] = book
	}

	books := make([]models.Book, 0, next-1)
	for id := uint64(1); id < next; id++ {
		if book, ok := byID[id]; ok {
			books = append(books, book)
			continue
		}
		books = append(books, models.Book{})
	}
	return books, nil
}

func (s *service) ensureStorekeeper(ctx context.Context, address string) error {
	if strings.TrimSpace(address) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor address is required")
	}
	ok, err := s.ledgerSvc.IsStorekeeper(ctx, address)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the storekeeper can modify the catalog")
	}
	return nil
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

func storekeeperActor(address string) *outbox.ActorRef {
	return &outbox.ActorRef{Address: address, Role: string(enums.RoleStorekeeper)}
}
