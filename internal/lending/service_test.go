package lending

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/internal/catalog"
	"github.com/bookhaven/bookledger-backend/pkg/config"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/outbox"
)

const outboxTable = `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_kind TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  book_id INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

type fakeLoanRepo struct {
	records map[string]*models.LoanRecord
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{records: map[string]*models.LoanRecord{}}
}

func (f *fakeLoanRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeLoanRepo) Find(ctx context.Context, holderAddress string) (*models.LoanRecord, error) {
	if record, ok := f.records[holderAddress]; ok {
		return record, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLoanRepo) FindForUpdate(ctx context.Context, holderAddress string) (*models.LoanRecord, error) {
	return f.Find(ctx, holderAddress)
}

func (f *fakeLoanRepo) Create(ctx context.Context, record *models.LoanRecord) error {
	f.records[record.HolderAddress] = record
	return nil
}

func (f *fakeLoanRepo) Delete(ctx context.Context, holderAddress string) error {
	delete(f.records, holderAddress)
	return nil
}

type fakeCatalogRepo struct {
	books map[uint64]*models.Book
}

func newFakeCatalogRepo(books ...*models.Book) *fakeCatalogRepo {
	byID := map[uint64]*models.Book{}
	for _, book := range books {
		byID[book.ID] = book
	}
	return &fakeCatalogRepo{books: byID}
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalogRepo) Create(ctx context.Context, book *models.Book) error {
	f.books[book.ID] = book
	return nil
}

func (f *fakeCatalogRepo) FindByID(ctx context.Context, id uint64) (*models.Book, error) {
	if book, ok := f.books[id]; ok {
		return book, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) MarkRemoved(ctx context.Context, id uint64, at time.Time) error {
	if book, ok := f.books[id]; ok {
		book.Removed = true
		book.RemovedAt = &at
	}
	return nil
}

func (f *fakeCatalogRepo) ListActive(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	for _, book := range f.books {
		if !book.Removed {
			books = append(books, *book)
		}
	}
	return books, nil
}

type testEnv struct {
	client  *dbpkg.Client
	loans   *fakeLoanRepo
	catalog *fakeCatalogRepo
	svc     Service
}

func newTestEnv(t *testing.T, books ...*models.Book) *testEnv {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:    "file::memory:?cache=shared",
		Driver: "sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().Exec(outboxTable).Error; err != nil {
		t.Fatalf("failed to create outbox table: %v", err)
	}
	if err := client.DB().Exec("DELETE FROM outbox_events").Error; err != nil {
		t.Fatalf("failed to reset outbox table: %v", err)
	}

	loans := newFakeLoanRepo()
	catalogRepo := newFakeCatalogRepo(books...)
	svc, err := NewService(ServiceParams{
		DBClient:    client,
		LoanRepo:    loans,
		CatalogRepo: catalogRepo,
		Outbox:      outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return &testEnv{client: client, loans: loans, catalog: catalogRepo, svc: svc}
}

func (e *testEnv) outboxKinds(t *testing.T) []string {
	t.Helper()
	var rows []models.OutboxEvent
	if err := e.client.DB().Find(&rows).Error; err != nil {
		t.Fatalf("failed to read outbox rows: %v", err)
	}
	kinds := make([]string, 0, len(rows))
	for _, row := range rows {
		kinds = append(kinds, string(row.EventKind))
	}
	return kinds
}

func TestBorrowBookSnapshotsLiveRow(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Stanislaw Lem", Price: 700, Stock: 5}
	env := newTestEnv(t, book)

	record, err := env.svc.BorrowBook(context.Background(), "book1alice", 1)
	if err != nil {
		t.Fatalf("BorrowBook error: %v", err)
	}
	if record.HolderAddress != "book1alice" {
		t.Fatalf("unexpected holder %q", record.HolderAddress)
	}
	if record.Snapshot != models.SnapshotOf(book) {
		t.Fatalf("loan must store an exact snapshot, got %+v", record.Snapshot)
	}
	if record.BorrowedAt.IsZero() {
		t.Fatal("expected borrow timestamp")
	}

	if kinds := env.outboxKinds(t); len(kinds) != 1 || kinds[0] != "book_borrowed" {
		t.Fatalf("unexpected outbox kinds %v", kinds)
	}
}

func TestBorrowBookAlreadyHoldingWinsOverNotFound(t *testing.T) {
	env := newTestEnv(t, &models.Book{ID: 1, Title: "Solaris", Author: "Lem"})

	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("first borrow error: %v", err)
	}

	// Second borrow targets a book that does not exist; the holding guard
	// still fires first.
	_, err := env.svc.BorrowBook(context.Background(), "book1alice", 99)
	if pkgerrors.As(err).Code() != pkgerrors.CodeAlreadyHolding {
		t.Fatalf("expected ALREADY_HOLDING, got %v", err)
	}
}

func TestBorrowBookGuards(t *testing.T) {
	removed := &models.Book{ID: 2, Title: "Gone", Author: "Nobody", Removed: true}
	env := newTestEnv(t, removed)

	if _, err := env.svc.BorrowBook(context.Background(), "", 1); pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty holder, got %v", err)
	}
	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 99); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown book, got %v", err)
	}
	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 2); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for removed book, got %v", err)
	}
	if kinds := env.outboxKinds(t); len(kinds) != 0 {
		t.Fatalf("failed borrows must not emit events, got %v", kinds)
	}
}

func TestReturnBookClearsSlot(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem", Price: 700, Stock: 5}
	env := newTestEnv(t, book)

	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("borrow error: %v", err)
	}
	if err := env.svc.ReturnBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("ReturnBook error: %v", err)
	}
	if _, ok := env.loans.records["book1alice"]; ok {
		t.Fatal("loan slot should be empty after return")
	}

	kinds := env.outboxKinds(t)
	if len(kinds) != 2 {
		t.Fatalf("expected borrow and return events, got %v", kinds)
	}

	// Slot is free again; a fresh borrow succeeds.
	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("re-borrow error: %v", err)
	}
}

func TestReturnBookNotHolding(t *testing.T) {
	env := newTestEnv(t, &models.Book{ID: 1, Title: "Solaris", Author: "Lem"})

	err := env.svc.ReturnBook(context.Background(), "book1alice", 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotHolding {
		t.Fatalf("expected NOT_HOLDING, got %v", err)
	}
}

func TestReturnBookWrongID(t *testing.T) {
	env := newTestEnv(t,
		&models.Book{ID: 1, Title: "Solaris", Author: "Lem"},
		&models.Book{ID: 2, Title: "Fiasco", Author: "Lem"},
	)

	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("borrow error: %v", err)
	}

	err := env.svc.ReturnBook(context.Background(), "book1alice", 2)
	if pkgerrors.As(err).Code() != pkgerrors.CodeWrongBook {
		t.Fatalf("expected WRONG_BOOK for mismatched id, got %v", err)
	}
}

func TestReturnBookAfterCatalogMutation(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem", Price: 700}
	env := newTestEnv(t, book)

	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("borrow error: %v", err)
	}

	book.Price = 800
	err := env.svc.ReturnBook(context.Background(), "book1alice", 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeWrongBook {
		t.Fatalf("expected WRONG_BOOK after price change, got %v", err)
	}

	// The slot stays occupied after a rejected return.
	if _, ok := env.loans.records["book1alice"]; !ok {
		t.Fatal("rejected return must not clear the loan slot")
	}
}

func TestReturnBookAfterRemoval(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem"}
	env := newTestEnv(t, book)

	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("borrow error: %v", err)
	}

	book.Removed = true
	err := env.svc.ReturnBook(context.Background(), "book1alice", 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("removed book must surface as NOT_FOUND, got %v", err)
	}
}

func TestGetLoan(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem"}
	env := newTestEnv(t, book)

	if _, err := env.svc.GetLoan(context.Background(), "book1alice"); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found without a loan, got %v", err)
	}

	if _, err := env.svc.BorrowBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("borrow error: %v", err)
	}
	record, err := env.svc.GetLoan(context.Background(), "book1alice")
	if err != nil {
		t.Fatalf("GetLoan error: %v", err)
	}
	if record.Snapshot.BookID != 1 {
		t.Fatalf("unexpected loan snapshot %+v", record.Snapshot)
	}
}
