package purchases

import (
	"context"
	"testing"

	"github.com/bookhaven/bookledger-backend/pkg/config"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
)

const salesTable = `
CREATE TABLE IF NOT EXISTS sales_counters (
  book_id INTEGER PRIMARY KEY,
  sold_count INTEGER NOT NULL DEFAULT 0
);`

func newSalesRepo(t *testing.T) (Repository, *dbpkg.Client) {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:    "file::memory:?cache=shared",
		Driver: "sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().Exec(salesTable).Error; err != nil {
		t.Fatalf("failed to create sales table: %v", err)
	}
	if err := client.DB().Exec("DELETE FROM sales_counters").Error; err != nil {
		t.Fatalf("failed to reset sales table: %v", err)
	}
	return NewRepository(client.DB()), client
}

func TestRepositoryIncrementSalesCreatesAndAdjusts(t *testing.T) {
	repo, _ := newSalesRepo(t)
	ctx := context.Background()

	if err := repo.IncrementSales(ctx, 7, 1); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if err := repo.IncrementSales(ctx, 7, 1); err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if err := repo.IncrementSales(ctx, 7, -1); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	count, err := repo.GetSalesCount(ctx, 7)
	if err != nil {
		t.Fatalf("GetSalesCount error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestRepositoryIncrementSalesToleratesExistingRow(t *testing.T) {
	repo, client := newSalesRepo(t)
	ctx := context.Background()

	// A row inserted by a concurrent buy must not make the seed insert fail
	// with a unique violation.
	if err := client.DB().Exec(
		"INSERT INTO sales_counters (book_id, sold_count) VALUES (?, ?)", 7, 5,
	).Error; err != nil {
		t.Fatalf("failed to seed counter: %v", err)
	}

	if err := repo.IncrementSales(ctx, 7, 1); err != nil {
		t.Fatalf("increment over existing row: %v", err)
	}

	count, err := repo.GetSalesCount(ctx, 7)
	if err != nil {
		t.Fatalf("GetSalesCount error: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected count 6, got %d", count)
	}
}

func TestRepositoryIncrementSalesClampsAtZero(t *testing.T) {
	repo, _ := newSalesRepo(t)
	ctx := context.Background()

	if err := repo.IncrementSales(ctx, 9, -3); err != nil {
		t.Fatalf("decrement on fresh counter: %v", err)
	}
	count, err := repo.GetSalesCount(ctx, 9)
	if err != nil {
		t.Fatalf("GetSalesCount error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected clamp at 0, got %d", count)
	}

	if err := repo.IncrementSales(ctx, 9, 2); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := repo.IncrementSales(ctx, 9, -5); err != nil {
		t.Fatalf("oversized decrement: %v", err)
	}
	count, err = repo.GetSalesCount(ctx, 9)
	if err != nil {
		t.Fatalf("GetSalesCount error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected clamp at 0 after oversized decrement, got %d", count)
	}
}

func TestRepositoryGetSalesCountUnknownBook(t *testing.T) {
	repo, _ := newSalesRepo(t)

	count, err := repo.GetSalesCount(context.Background(), 404)
	if err != nil {
		t.Fatalf("GetSalesCount error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 for unknown book, got %d", count)
	}
}
