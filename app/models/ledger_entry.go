package models

import "time"

const (
	LedgerReasonPlanGrant       = "plan_grant"
	LedgerReasonPurchase        = "purchase"
	LedgerReasonUsageDebit      = "usage_debit"
	LedgerReasonAdminAdjustment = "admin_adjustment"
	LedgerReasonRefund          = "refund"
)

// LedgerEntry is an immutable record of one balance-changing event. Entries
// are write-once: no update or delete path exists anywhere in the codebase.
// Replaying all entries for a user from zero must reproduce the wallet
// balance exactly; BalanceAfter snapshots the balance for audit and drift
// detection. The unique (user_id, idempotency_key) index is what makes
// credits exactly-once under at-least-once delivery.
type LedgerEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index;index:ux_ledger_entries_user_key,unique,priority:1" json:"user_id"`
	Delta          int64     `gorm:"not null" json:"delta"`
	BalanceAfter   int64     `gorm:"not null" json:"balance_after"`
	Reason         string    `gorm:"type:varchar(32);not null;index" json:"reason"`
	IdempotencyKey string    `gorm:"type:varchar(191);not null;index:ux_ledger_entries_user_key,unique,priority:2" json:"idempotency_key"`
	ReferenceID    string    `gorm:"type:varchar(191);not null;default:''" json:"reference_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// IsCredit reports whether the entry increased the balance.
func (e *LedgerEntry) IsCredit() bool {
	return e.Delta > 0
}
