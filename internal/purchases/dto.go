package purchases

import (
	"time"

	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// PurchaseDTO is the wire representation of an active purchase.
type PurchaseDTO struct {
	HolderAddress string      `json:"holder_address"`
	Book          models.Book `json:"book"`
	PurchasedAt   time.Time   `json:"purchased_at"`
}

// RefundDTO is the wire representation of the most recent refund.
type RefundDTO struct {
	HolderAddress string      `json:"holder_address"`
	Book          models.Book `json:"book"`
	RefundedAt    time.Time   `json:"refunded_at"`
}

// FromPurchase converts a purchase row into its DTO.
func FromPurchase(record *models.PurchaseRecord) *PurchaseDTO {
	if record == nil {
		return nil
	}
	return &PurchaseDTO{
		HolderAddress: record.HolderAddress,
		Book:          record.Snapshot.ToBook(),
		PurchasedAt:   record.PurchasedAt,
	}
}

// FromRefund converts a refund row into its DTO.
func FromRefund(record *models.RefundRecord) *RefundDTO {
	if record == nil {
		return nil
	}
	return &RefundDTO{
		HolderAddress: record.HolderAddress,
		Book:          record.Snapshot.ToBook(),
		RefundedAt:    record.RefundedAt,
	}
}
