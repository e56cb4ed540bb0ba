package models

import "time"

// LedgerSettingsID is the primary key of the singleton settings row.
const LedgerSettingsID int16 = 1

// LedgerSettings is the one-row table written by the one-time setup
// operation. NextBookID starts at 1 and only ever grows; id allocation locks
// this row so concurrent add_book calls serialize.
type LedgerSettings struct {
	ID                 int16     `gorm:"column:id;primaryKey;autoIncrement:false"`
	StorekeeperAddress string    `gorm:"column:storekeeper_address;not null"`
	NextBookID         uint64    `gorm:"column:next_book_id;not null;default:1"`
	InitializedAt      time.Time `gorm:"column:initialized_at;autoCreateTime"`
}

func (LedgerSettings) TableName() string { return "ledger_settings" }
