package models

import "time"

// RefundRecord keeps the most recent refunded purchase per holder; a newer
// refund overwrites the previous one.
type RefundRecord struct {
	HolderAddress string    `gorm:"column:holder_address;primaryKey"`
	Snapshot      Snapshot  `gorm:"embedded"`
	RefundedAt    time.Time `gorm:"column:refunded_at;autoUpdateTime"`
}

func (RefundRecord) TableName() string { return "refund_records" }
