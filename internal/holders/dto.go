package holders

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// HolderDTO is the wire representation of an account. The password hash never
// leaves the repository layer.
type HolderDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Address     string     `json:"address"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// FromModel converts a holder row into its DTO.
func FromModel(holder *models.Holder) *HolderDTO {
	if holder == nil {
		return nil
	}
	return &HolderDTO{
		ID:          holder.ID,
		Email:       holder.Email,
		DisplayName: holder.DisplayName,
		Address:     holder.Address,
		LastLoginAt: holder.LastLoginAt,
	}
}
