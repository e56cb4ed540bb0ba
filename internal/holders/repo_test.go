package holders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/pkg/config"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

const holdersTable = `
CREATE TABLE IF NOT EXISTS holders (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  address TEXT NOT NULL UNIQUE,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`

func newRepo(t *testing.T) Repository {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:    "file::memory:?cache=shared",
		Driver: "sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().Exec(holdersTable).Error; err != nil {
		t.Fatalf("failed to create holders table: %v", err)
	}
	if err := client.DB().Exec("DELETE FROM holders").Error; err != nil {
		t.Fatalf("failed to reset holders table: %v", err)
	}
	return NewRepository(client.DB())
}

func seedHolder(t *testing.T, repo Repository) *models.Holder {
	t.Helper()
	holder := &models.Holder{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
		DisplayName:  "Alice",
		Address:      "book1alice",
	}
	if err := repo.Create(context.Background(), holder); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return holder
}

func TestRepositoryFindByEmailIsCaseInsensitive(t *testing.T) {
	repo := newRepo(t)
	seedHolder(t, repo)

	for _, email := range []string{"alice@example.com", "ALICE@EXAMPLE.COM", "Alice@Example.Com"} {
		found, err := repo.FindByEmail(context.Background(), email)
		if err != nil {
			t.Fatalf("FindByEmail(%q) error: %v", email, err)
		}
		if found.Address != "book1alice" {
			t.Fatalf("unexpected holder %+v", found)
		}
	}

	_, err := repo.FindByEmail(context.Background(), "bob@example.com")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepositoryFindByAddress(t *testing.T) {
	repo := newRepo(t)
	holder := seedHolder(t, repo)

	found, err := repo.FindByAddress(context.Background(), holder.Address)
	if err != nil {
		t.Fatalf("FindByAddress error: %v", err)
	}
	if found.Email != holder.Email {
		t.Fatalf("unexpected holder %+v", found)
	}

	_, err = repo.FindByAddress(context.Background(), "book1nobody")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	repo := newRepo(t)
	holder := seedHolder(t, repo)

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.UpdateLastLogin(context.Background(), holder.ID, at); err != nil {
		t.Fatalf("UpdateLastLogin error: %v", err)
	}

	found, err := repo.FindByAddress(context.Background(), holder.Address)
	if err != nil {
		t.Fatalf("FindByAddress error: %v", err)
	}
	if found.LastLoginAt == nil {
		t.Fatal("last_login_at not written")
	}
	if !found.LastLoginAt.Equal(at) {
		t.Fatalf("unexpected last_login_at %v", found.LastLoginAt)
	}
}
