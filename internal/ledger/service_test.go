package ledger

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/pkg/config"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
)

type fakeRepository struct {
	getFn          func(ctx context.Context) (*models.LedgerSettings, error)
	getForUpdateFn func(ctx context.Context) (*models.LedgerSettings, error)
	createFn       func(ctx context.Context, settings *models.LedgerSettings) error
	setNextFn      func(ctx context.Context, next uint64) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Get(ctx context.Context) (*models.LedgerSettings, error) {
	if f.getFn != nil {
		return f.getFn(ctx)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetForUpdate(ctx context.Context) (*models.LedgerSettings, error) {
	if f.getForUpdateFn != nil {
		return f.getForUpdateFn(ctx)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) Create(ctx context.Context, settings *models.LedgerSettings) error {
	if f.createFn != nil {
		return f.createFn(ctx, settings)
	}
	return nil
}

func (f *fakeRepository) SetNextBookID(ctx context.Context, next uint64) error {
	if f.setNextFn != nil {
		return f.setNextFn(ctx, next)
	}
	return nil
}

func newTestClient(t *testing.T) *dbpkg.Client {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:    "file::memory:?cache=shared",
		Driver: "sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestInitializeCreatesSingleton(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(newTestClient(t), repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var created *models.LedgerSettings
	repo.createFn = func(ctx context.Context, settings *models.LedgerSettings) error {
		created = settings
		return nil
	}

	settings, err := svc.Initialize(context.Background(), "book1aaaa")
	if err != nil {
		t.Fatalf("Initialize error: %v", err)
	}
	if created == nil {
		t.Fatal("expected settings row to be created")
	}
	if settings.ID != models.LedgerSettingsID {
		t.Fatalf("settings must use the singleton id, got %d", settings.ID)
	}
	if settings.StorekeeperAddress != "book1aaaa" {
		t.Fatalf("unexpected storekeeper address %q", settings.StorekeeperAddress)
	}
	if settings.NextBookID != 1 {
		t.Fatalf("counter must start at 1, got %d", settings.NextBookID)
	}
}

func TestInitializeTwiceConflicts(t *testing.T) {
	repo := &fakeRepository{
		getFn: func(ctx context.Context) (*models.LedgerSettings, error) {
			return &models.LedgerSettings{ID: models.LedgerSettingsID, StorekeeperAddress: "book1aaaa", NextBookID: 4}, nil
		},
	}
	svc, err := NewService(newTestClient(t), repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.Initialize(context.Background(), "book1bbbb")
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on second initialize, got %v", err)
	}
}

func TestInitializeRequiresAddress(t *testing.T) {
	svc, err := NewService(newTestClient(t), &fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Initialize(context.Background(), "   "); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIsStorekeeper(t *testing.T) {
	repo := &fakeRepository{
		getFn: func(ctx context.Context) (*models.LedgerSettings, error) {
			return &models.LedgerSettings{ID: models.LedgerSettingsID, StorekeeperAddress: "book1keeper", NextBookID: 1}, nil
		},
	}
	svc, err := NewService(newTestClient(t), repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	ok, err := svc.IsStorekeeper(context.Background(), "book1keeper")
	if err != nil || !ok {
		t.Fatalf("expected storekeeper match, got ok=%v err=%v", ok, err)
	}

	ok, err = svc.IsStorekeeper(context.Background(), "book1other")
	if err != nil || ok {
		t.Fatalf("expected no match for other address, got ok=%v err=%v", ok, err)
	}

	ok, err = svc.IsStorekeeper(context.Background(), "")
	if err != nil || ok {
		t.Fatalf("empty address must resolve to false without error, got ok=%v err=%v", ok, err)
	}
}

func TestIsStorekeeperBeforeInitialize(t *testing.T) {
	svc, err := NewService(newTestClient(t), &fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.IsStorekeeper(context.Background(), "book1keeper")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found before initialize, got %v", err)
	}
}

func TestAllocateBookIDAdvancesCounter(t *testing.T) {
	var setTo uint64
	repo := &fakeRepository{
		getForUpdateFn: func(ctx context.Context) (*models.LedgerSettings, error) {
			return &models.LedgerSettings{ID: models.LedgerSettingsID, StorekeeperAddress: "book1keeper", NextBookID: 7}, nil
		},
		setNextFn: func(ctx context.Context, next uint64) error {
			setTo = next
			return nil
		},
	}
	client := newTestClient(t)
	svc, err := NewService(client, repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var allocated uint64
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		id, err := svc.AllocateBookIDTx(context.Background(), tx)
		allocated = id
		return err
	})
	if err != nil {
		t.Fatalf("AllocateBookIDTx error: %v", err)
	}
	if allocated != 7 {
		t.Fatalf("expected allocation to return current counter 7, got %d", allocated)
	}
	if setTo != 8 {
		t.Fatalf("expected counter to advance to 8, got %d", setTo)
	}
}

func TestAllocateBookIDRequiresTransaction(t *testing.T) {
	svc, err := NewService(newTestClient(t), &fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.AllocateBookIDTx(context.Background(), nil); err == nil {
		t.Fatal("expected error without a transaction")
	}
}

func TestAllocateBookIDBeforeInitialize(t *testing.T) {
	client := newTestClient(t)
	svc, err := NewService(client, &fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := svc.AllocateBookIDTx(context.Background(), tx)
		return err
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found before initialize, got %v", err)
	}
}

func TestGetRepoErrorSurfacesAsDependency(t *testing.T) {
	repo := &fakeRepository{
		getFn: func(ctx context.Context) (*models.LedgerSettings, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc, err := NewService(newTestClient(t), repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Get(context.Background()); pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
