package purchases

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

type fakePurchaseRepo struct {
	purchases map[string]*models.PurchaseRecord
	refunds   map[string]*models.RefundRecord
	sales     map[uint64]int64
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{
		purchases: map[string]*models.PurchaseRecord{},
		refunds:   map[string]*models.RefundRecord{},
		sales:     map[uint64]int64{},
	}
}

func (f *fakePurchaseRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePurchaseRepo) FindPurchase(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error) {
	if record, ok := f.purchases[holderAddress]; ok {
		return record, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePurchaseRepo) FindPurchaseForUpdate(ctx context.Context, holderAddress string) (*models.PurchaseRecord, error) {
	return f.FindPurchase(ctx, holderAddress)
}

func (f *fakePurchaseRepo) UpsertPurchase(ctx context.Context, record *models.PurchaseRecord) error {
	f.purchases[record.HolderAddress] = record
	return nil
}

func (f *fakePurchaseRepo) DeletePurchase(ctx context.Context, holderAddress string) error {
	delete(f.purchases, holderAddress)
	return nil
}

func (f *fakePurchaseRepo) FindRefund(ctx context.Context, holderAddress string) (*models.RefundRecord, error) {
	if record, ok := f.refunds[holderAddress]; ok {
		return record, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePurchaseRepo) UpsertRefund(ctx context.Context, record *models.RefundRecord) error {
	f.refunds[record.HolderAddress] = record
	return nil
}

func (f *fakePurchaseRepo) GetSalesCount(ctx context.Context, bookID uint64) (int64, error) {
	return f.sales[bookID], nil
}

func (f *fakePurchaseRepo) IncrementSales(ctx context.Context, bookID uint64, delta int64) error {
	next := f.sales[bookID] + delta
	if next < 0 {
		next = 0
	}
	f.sales[bookID] = next
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
	client *dbpkg.Client
	repo   *fakePurchaseRepo
	svc    Service
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

	repo := newFakePurchaseRepo()
	svc, err := NewService(ServiceParams{
		DBClient:    client,
		Repo:        repo,
		CatalogRepo: newFakeCatalogRepo(books...),
		Outbox:      outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return &testEnv{client: client, repo: repo, svc: svc}
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

func TestBuyBookWritesSlotAndCountsSale(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem", Price: 700, Stock: 5}
	env := newTestEnv(t, book)

	record, err := env.svc.BuyBook(context.Background(), "book1alice", 1)
	if err != nil {
		t.Fatalf("BuyBook error: %v", err)
	}
	if record.Snapshot != models.SnapshotOf(book) {
		t.Fatalf("purchase must store an exact snapshot, got %+v", record.Snapshot)
	}
	if got := env.repo.sales[1]; got != 1 {
		t.Fatalf("expected sales counter 1, got %d", got)
	}
	if kinds := env.outboxKinds(t); len(kinds) != 1 || kinds[0] != "book_bought" {
		t.Fatalf("unexpected outbox kinds %v", kinds)
	}
}

func TestBuyBookOverwritesExistingSlot(t *testing.T) {
	env := newTestEnv(t,
		&models.Book{ID: 1, Title: "Solaris", Author: "Lem"},
		&models.Book{ID: 2, Title: "Fiasco", Author: "Lem"},
	)

	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("first buy error: %v", err)
	}
	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 2); err != nil {
		t.Fatalf("second buy error: %v", err)
	}

	slot := env.repo.purchases["book1alice"]
	if slot == nil || slot.Snapshot.BookID != 2 {
		t.Fatalf("second buy must replace the slot, got %+v", slot)
	}
	// Each buy still counts against its own book.
	if env.repo.sales[1] != 1 || env.repo.sales[2] != 1 {
		t.Fatalf("unexpected sales counters %v", env.repo.sales)
	}
}

func TestBuyBookGuards(t *testing.T) {
	removed := &models.Book{ID: 2, Title: "Gone", Author: "Nobody", Removed: true}
	env := newTestEnv(t, removed)

	if _, err := env.svc.BuyBook(context.Background(), "", 1); pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty holder, got %v", err)
	}
	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 99); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown book, got %v", err)
	}
	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 2); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for removed book, got %v", err)
	}
}

func TestRefundBookRoundTrip(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem", Price: 700}
	env := newTestEnv(t, book)

	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("buy error: %v", err)
	}

	refund, err := env.svc.RefundBook(context.Background(), "book1alice", 1)
	if err != nil {
		t.Fatalf("RefundBook error: %v", err)
	}
	if refund.Snapshot.BookID != 1 {
		t.Fatalf("refund must carry the purchase snapshot, got %+v", refund.Snapshot)
	}
	if _, ok := env.repo.purchases["book1alice"]; ok {
		t.Fatal("purchase slot should be empty after refund")
	}
	if got := env.repo.sales[1]; got != 0 {
		t.Fatalf("refund must decrement sales back to 0, got %d", got)
	}

	kinds := env.outboxKinds(t)
	if len(kinds) != 2 {
		t.Fatalf("expected bought and refunded events, got %v", kinds)
	}
}

func TestRefundBookNotPurchased(t *testing.T) {
	env := newTestEnv(t, &models.Book{ID: 1, Title: "Solaris", Author: "Lem"})

	_, err := env.svc.RefundBook(context.Background(), "book1alice", 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotPurchased {
		t.Fatalf("expected NOT_PURCHASED, got %v", err)
	}
}

func TestRefundBookWrongID(t *testing.T) {
	env := newTestEnv(t,
		&models.Book{ID: 1, Title: "Solaris", Author: "Lem"},
		&models.Book{ID: 2, Title: "Fiasco", Author: "Lem"},
	)

	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("buy error: %v", err)
	}

	_, err := env.svc.RefundBook(context.Background(), "book1alice", 2)
	if pkgerrors.As(err).Code() != pkgerrors.CodeWrongBook {
		t.Fatalf("expected WRONG_BOOK for mismatched id, got %v", err)
	}
	if env.repo.sales[1] != 1 {
		t.Fatalf("rejected refund must not touch the counter, got %v", env.repo.sales)
	}
}

func TestRefundBookAfterCatalogMutation(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem", Price: 700}
	env := newTestEnv(t, book)

	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("buy error: %v", err)
	}

	book.Price = 650
	_, err := env.svc.RefundBook(context.Background(), "book1alice", 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeWrongBook {
		t.Fatalf("expected WRONG_BOOK after price change, got %v", err)
	}

	book.Price = 700
	book.Removed = true
	_, err = env.svc.RefundBook(context.Background(), "book1alice", 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("removed book must surface as NOT_FOUND, got %v", err)
	}
}

func TestSalesCounterClampsAtZero(t *testing.T) {
	env := newTestEnv(t, &models.Book{ID: 1, Title: "Solaris", Author: "Lem"})

	if err := env.repo.IncrementSales(context.Background(), 1, -1); err != nil {
		t.Fatalf("IncrementSales error: %v", err)
	}
	count, err := env.svc.GetSales(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetSales error: %v", err)
	}
	if count != 0 {
		t.Fatalf("counter must clamp at zero, got %d", count)
	}
}

func TestGetSalesUnknownBookReadsZero(t *testing.T) {
	env := newTestEnv(t)

	count, err := env.svc.GetSales(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetSales error: %v", err)
	}
	if count != 0 {
		t.Fatalf("unknown book must read zero, got %d", count)
	}
}

func TestGetRefundedBook(t *testing.T) {
	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem"}
	env := newTestEnv(t, book)

	if _, err := env.svc.GetRefundedBook(context.Background(), "book1alice"); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found without refunds, got %v", err)
	}

	if _, err := env.svc.BuyBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("buy error: %v", err)
	}
	if _, err := env.svc.RefundBook(context.Background(), "book1alice", 1); err != nil {
		t.Fatalf("refund error: %v", err)
	}

	record, err := env.svc.GetRefundedBook(context.Background(), "book1alice")
	if err != nil {
		t.Fatalf("GetRefundedBook error: %v", err)
	}
	if record.Snapshot.BookID != 1 {
		t.Fatalf("unexpected refund snapshot %+v", record.Snapshot)
	}
}
