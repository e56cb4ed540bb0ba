package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/pkg/config"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

const booksTable = `
CREATE TABLE IF NOT EXISTS catalog_books (
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  author TEXT NOT NULL,
  price INTEGER NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  removed INTEGER NOT NULL DEFAULT 0,
  removed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`

func newRepoClient(t *testing.T) Repository {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:    "file::memory:?cache=shared",
		Driver: "sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().Exec(booksTable).Error; err != nil {
		t.Fatalf("failed to create books table: %v", err)
	}
	if err := client.DB().Exec("DELETE FROM catalog_books").Error; err != nil {
		t.Fatalf("failed to reset books table: %v", err)
	}
	return NewRepository(client.DB())
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := newRepoClient(t)
	ctx := context.Background()

	book := &models.Book{ID: 1, Title: "Solaris", Author: "Lem", Price: 700, Stock: 5}
	if err := repo.Create(ctx, book); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	found, err := repo.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if found.Title != "Solaris" || found.Price != 700 {
		t.Fatalf("unexpected row %+v", found)
	}

	_, err = repo.FindByID(ctx, 99)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepositoryFindReturnsRemovedRows(t *testing.T) {
	repo := newRepoClient(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Book{ID: 1, Title: "Solaris", Author: "Lem"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.MarkRemoved(ctx, 1, time.Now().UTC()); err != nil {
		t.Fatalf("MarkRemoved error: %v", err)
	}

	found, err := repo.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("removed rows must stay findable: %v", err)
	}
	if !found.Removed {
		t.Fatal("removed flag not set")
	}
	if found.RemovedAt == nil {
		t.Fatal("removed_at not set")
	}
}

func TestRepositoryListActiveOrdersByID(t *testing.T) {
	repo := newRepoClient(t)
	ctx := context.Background()

	for _, book := range []*models.Book{
		{ID: 3, Title: "Fiasco", Author: "Lem"},
		{ID: 1, Title: "Solaris", Author: "Lem"},
		{ID: 2, Title: "Eden", Author: "Lem"},
	} {
		if err := repo.Create(ctx, book); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if err := repo.MarkRemoved(ctx, 2, time.Now().UTC()); err != nil {
		t.Fatalf("MarkRemoved error: %v", err)
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive error: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active rows, got %d", len(active))
	}
	if active[0].ID != 1 || active[1].ID != 3 {
		t.Fatalf("rows not ordered by id: %d, %d", active[0].ID, active[1].ID)
	}
}
