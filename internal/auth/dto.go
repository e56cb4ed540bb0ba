package auth

import "github.com/bookhaven/bookledger-backend/internal/holders"

// RegisterRequest contains the payload for creating a holder account. The
// ledger address is generated server side, never supplied.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the rotation pair. The access token may be expired;
// only its signature is checked, and its jti keys the stored session.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse contains the tokens and account produced by a successful
// login. AccessID keys the refresh session in redis.
type LoginResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	AccessID     string             `json:"access_id"`
	Holder       *holders.HolderDTO `json:"holder"`
}

// RefreshResponse mirrors LoginResponse minus the account.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessID     string `json:"access_id"`
}

// RegisterResponse returns the new account including its generated address.
type RegisterResponse struct {
	Holder *holders.HolderDTO `json:"holder"`
}
