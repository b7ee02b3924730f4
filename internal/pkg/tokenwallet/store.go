package tokenwallet

import (
	"context"

	"github.com/MarketLensHQ/MarketLens/app/models"
)

// TxStore is the store view inside one atomic unit. Either every mutation
// performed through it becomes visible together, or none does.
type TxStore interface {
	// GetWallet returns the wallet row for a user. A user without a wallet
	// yet gets a zero-value wallet (balance 0, version 0) and no error.
	GetWallet(userID uint) (*models.Wallet, error)

	// ApplyDelta mutates the balance guarded by the expected version.
	// Returns ErrVersionConflict when the stored version moved on,
	// ErrInsufficientBalance when the delta would push the balance
	// negative. expectedVersion 0 creates the wallet row lazily.
	ApplyDelta(userID uint, delta int64, expectedVersion uint64) (newBalance int64, newVersion uint64, err error)

	// AppendEntry writes one immutable ledger entry. Returns
	// ErrDuplicateIdempotencyKey when (user, idempotency key) exists.
	AppendEntry(entry *models.LedgerEntry) error

	// FindEntryByKey returns the entry for (user, idempotency key), or
	// (nil, nil) when absent.
	FindEntryByKey(userID uint, idempotencyKey string) (*models.LedgerEntry, error)
}

// Store is the persistence behaviour the wallet ledger service needs.
type Store interface {
	// Transact runs fn atomically. A returned error rolls back every
	// mutation fn performed.
	Transact(ctx context.Context, fn func(TxStore) error) error

	// GetBalance returns the current balance, 0 for users without a wallet.
	GetBalance(ctx context.Context, userID uint) (int64, error)

	// ListEntries returns ledger entries for a user ordered oldest-first by
	// insertion sequence, stable under concurrent appends.
	ListEntries(ctx context.Context, userID uint, offset, limit int) ([]models.LedgerEntry, error)

	// CountEntries returns the total number of entries for a user.
	CountEntries(ctx context.Context, userID uint) (int64, error)
}
