package models

import "time"

const (
	PurchaseStatusPending  = "pending"
	PurchaseStatusCaptured = "captured"
	PurchaseStatusCredited = "credited"
	PurchaseStatusFailed   = "failed"
	PurchaseStatusCanceled = "canceled"
)

// Purchase records one token pack buy attempt and its lifecycle:
// pending -> captured -> credited, or pending -> failed/canceled.
// A purchase reaches credited at most once, and only after a ledger entry
// referencing its ID exists. The client-supplied idempotency key is unique
// so double form submissions cannot create duplicate purchase rows.
type Purchase struct {
	ID              string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	PackID          string     `gorm:"type:varchar(64);not null" json:"pack_id"`
	TokenAmount     int64      `gorm:"not null" json:"token_amount"`
	PriceCents      int64      `gorm:"not null" json:"price_cents"`
	Currency        string     `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProviderOrderID string     `gorm:"type:varchar(191);index" json:"provider_order_id"`
	IdempotencyKey  string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"idempotency_key"`
	CreditedAt      *time.Time `gorm:"type:timestamp;default:null" json:"credited_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether no further status transitions are allowed.
func (p *Purchase) IsTerminal() bool {
	switch p.Status {
	case PurchaseStatusCredited, PurchaseStatusFailed, PurchaseStatusCanceled:
		return true
	default:
		return false
	}
}
