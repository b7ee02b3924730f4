package models

import "time"

// Wallet is the denormalized current token balance per user. The ledger is
// the source of truth; the wallet row is a projection kept consistent with it
// inside the same transaction. Version guards optimistic concurrency: every
// balance mutation must match the stored version or be retried.
type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	Version   uint64    `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
