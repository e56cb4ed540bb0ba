package ledger

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
)

// Service owns the settings singleton: one-time initialization, storekeeper
// identity, and the sequential book id counter.
type Service interface {
	Initialize(ctx context.Context, storekeeperAddress string) (*models.LedgerSettings, error)
	Get(ctx context.Context) (*models.LedgerSettings, error)
	IsStorekeeper(ctx context.Context, address string) (bool, error)
	AllocateBookIDTx(ctx context.Context, tx *gorm.DB) (uint64, error)
	NextBookIDTx(ctx context.Context, tx *gorm.DB) (uint64, error)
}

type service struct {
	dbClient *dbpkg.Client
	repo     Repository
}

// NewService wires the settings service with the required dependencies.
func NewService(dbClient *dbpkg.Client, repo Repository) (Service, error) {
	if dbClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings repo is required")
	}
	return &service{dbClient: dbClient, repo: repo}, nil
}

// Initialize records the storekeeper address exactly once. A second call
// conflicts regardless of the address supplied.
func (s *service) Initialize(ctx context.Context, storekeeperAddress string) (*models.LedgerSettings, error) {
	storekeeperAddress = strings.TrimSpace(storekeeperAddress)
	if storekeeperAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storekeeper address is required")
	}

	settings := &models.LedgerSettings{
		ID:                 models.LedgerSettingsID,
		StorekeeperAddress: storekeeperAddress,
		NextBookID:         1,
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Get(ctx); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "ledger already initialized")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger settings")
		}
		if err := txRepo.Create(ctx, settings); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "ledger already initialized")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger settings")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *service) Get(ctx context.Context) (*models.LedgerSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger not initialized")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger settings")
	}
	return settings, nil
}

func (s *service) IsStorekeeper(ctx context.Context, address string) (bool, error) {
	if address == "" {
		return false, nil
	}
	settings, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return settings.StorekeeperAddress == address, nil
}

// AllocateBookIDTx hands out the next sequential id inside the caller's
// transaction. The settings row stays locked until that transaction ends, so
// two concurrent adds can never observe the same counter value.
func (s *service) AllocateBookIDTx(ctx context.Context, tx *gorm.DB) (uint64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "transaction required")
	}
	txRepo := s.repo.WithTx(tx)
	settings, err := txRepo.GetForUpdate(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "ledger not initialized")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock ledger settings")
	}
	id := settings.NextBookID
	if err := txRepo.SetNextBookID(ctx, id+1); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance book id counter")
	}
	return id, nil
}

// NextBookIDTx reads the counter without consuming it, inside the caller's
// transaction so the value lines up with whatever else that transaction reads.
// Book ids 1..next-1 have been issued at some point, removed or not.
func (s *service) NextBookIDTx(ctx context.Context, tx *gorm.DB) (uint64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "transaction required")
	}
	settings, err := s.repo.WithTx(tx).Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "ledger not initialized")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger settings")
	}
	return settings.NextBookID, nil
}
