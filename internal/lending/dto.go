package lending

import (
	"time"

	"github.com/bookhaven/bookledger-backend/pkg/db/models"
)

// LoanDTO is the wire representation of an active loan.
type LoanDTO struct {
	HolderAddress string      `json:"holder_address"`
	Book          models.Book `json:"book"`
	BorrowedAt    time.Time   `json:"borrowed_at"`
}

// FromRecord converts a loan row into its DTO.
func FromRecord(record *models.LoanRecord) *LoanDTO {
	if record == nil {
		return nil
	}
	return &LoanDTO{
		HolderAddress: record.HolderAddress,
		Book:          record.Snapshot.ToBook(),
		BorrowedAt:    record.BorrowedAt,
	}
}
