package models

import "time"

// PurchaseRecord is the single active purchase slot for a holder. A second
// buy before a refund overwrites it silently; that limitation is part of the
// ledger contract.
type PurchaseRecord struct {
	HolderAddress string    `gorm:"column:holder_address;primaryKey"`
	Snapshot      Snapshot  `gorm:"embedded"`
	PurchasedAt   time.Time `gorm:"column:purchased_at;autoCreateTime"`
}

func (PurchaseRecord) TableName() string { return "purchase_records" }
