package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookhaven/bookledger-backend/internal/holders"
	pkgAuth "github.com/bookhaven/bookledger-backend/pkg/auth"
	"github.com/bookhaven/bookledger-backend/pkg/auth/session"
	"github.com/bookhaven/bookledger-backend/pkg/config"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	"github.com/bookhaven/bookledger-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, accessID string) error
}

type holderRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Holder, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type storekeeperChecker interface {
	IsStorekeeper(ctx context.Context, address string) (bool, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	HolderRepo     holderRepository
	Storekeeper    storekeeperChecker
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

type service struct {
	holders     holderRepository
	storekeeper storekeeperChecker
	session     sessionManager
	jwtCfg      config.JWTConfig
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.HolderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "holder repository is required")
	}
	if params.Storekeeper == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storekeeper checker is required")
	}
	if params.SessionManager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session manager is required")
	}
	return &service{
		holders:     params.HolderRepo,
		storekeeper: params.Storekeeper,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	holder, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	role, err := s.resolveRole(ctx, holder.Address)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.holders.UpdateLastLogin(ctx, holder.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	holder.LastLoginAt = &now

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		HolderID: holder.ID,
		Address:  holder.Address,
		Role:     role,
		JTI:      accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessID:     accessID,
		Holder:       holders.FromModel(holder),
	}, nil
}

// Refresh rotates the session and mints a fresh token pair. The storekeeper
// role is re-resolved so a token minted before initialization does not keep
// the holder role after it.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := pkgAuth.ParseExpiredAccessToken(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	role, err := s.resolveRole(ctx, claims.Address)
	if err != nil {
		return nil, err
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		HolderID: claims.HolderID,
		Address:  claims.Address,
		Role:     role,
		JTI:      newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		AccessID:     newAccessID,
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Holder, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	holder, err := s.holders.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup holder")
	}

	valid, err := security.VerifyPassword(password, holder.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return holder, nil
}

// resolveRole grants the storekeeper role only to the address fixed at
// initialization. Before initialization everyone is a holder.
func (s *service) resolveRole(ctx context.Context, address string) (enums.ActorRole, error) {
	isStorekeeper, err := s.storekeeper.IsStorekeeper(ctx, address)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return enums.RoleHolder, nil
		}
		return "", err
	}
	if isStorekeeper {
		return enums.RoleStorekeeper, nil
	}
	return enums.RoleHolder, nil
}
