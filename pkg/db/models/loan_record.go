package models

import "time"

// LoanRecord is the single active loan slot for a holder. Presence of a row
// means the holder has an outstanding loan; there is no separate status flag.
type LoanRecord struct {
	HolderAddress string    `gorm:"column:holder_address;primaryKey"`
	Snapshot      Snapshot  `gorm:"embedded"`
	BorrowedAt    time.Time `gorm:"column:borrowed_at;autoCreateTime"`
}

func (LoanRecord) TableName() string { return "loan_records" }
