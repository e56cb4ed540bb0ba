package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/internal/holders"
	"github.com/bookhaven/bookledger-backend/pkg/config"
	dbpkg "github.com/bookhaven/bookledger-backend/pkg/db"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/security"
)

const (
	addressPrefix = "book1"
	addressBytes  = 20
)

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *dbpkg.Client
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          *dbpkg.Client
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates the holder row and its opaque ledger address. The address
// is random, prefix-tagged, and fixed for the life of the account.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	address, err := generateAddress()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate address")
	}

	holder := &models.Holder{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Address:      address,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := holders.NewRepository(tx)

		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check holder email")
		}

		if err := repo.Create(ctx, holder); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create holder")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResponse{Holder: holders.FromModel(holder)}, nil
}

func generateAddress() (string, error) {
	raw := make([]byte, addressBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	return addressPrefix + hex.EncodeToString(raw), nil
}
