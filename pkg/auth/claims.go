package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bookhaven/bookledger-backend/pkg/enums"
)

// AccessTokenPayload is the data minted into an access token.
type AccessTokenPayload struct {
	HolderID uuid.UUID
	Address  string
	Role     enums.ActorRole
	JTI      string
}

// AccessTokenClaims is the JWT claim set carried by every authenticated call.
// Address is the opaque identity the ledger compares for equality; its
// structure is never interpreted.
type AccessTokenClaims struct {
	HolderID uuid.UUID       `json:"holder_id"`
	Address  string          `json:"address"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
