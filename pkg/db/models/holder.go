package models

import (
	"time"

	"github.com/google/uuid"
)

// Holder is an authenticated account. Address is the opaque identity the
// ledger compares for equality; it is generated once at registration and
// never reassigned.
type Holder struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	DisplayName  string     `gorm:"column:display_name;not null"`
	Address      string     `gorm:"column:address;uniqueIndex;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Holder) TableName() string { return "holders" }
