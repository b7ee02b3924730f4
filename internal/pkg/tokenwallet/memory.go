package tokenwallet

import (
	"context"
	"sync"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Transactions serialize on one mutex and roll back by restoring a snapshot,
// so the atomicity contract matches the database-backed store.
type MemoryStore struct {
	mu      sync.Mutex
	wallets map[uint]models.Wallet
	entries []models.LedgerEntry
	nextID  uint
}

// NewMemoryStore creates an empty in-memory wallet store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[uint]models.Wallet),
		nextID:  1,
	}
}

func (s *MemoryStore) Transact(ctx context.Context, fn func(TxStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshotWallets := make(map[uint]models.Wallet, len(s.wallets))
	for k, v := range s.wallets {
		snapshotWallets[k] = v
	}
	snapshotLen := len(s.entries)
	snapshotNextID := s.nextID

	if err := fn(&memoryTxStore{s: s}); err != nil {
		s.wallets = snapshotWallets
		s.entries = s.entries[:snapshotLen]
		s.nextID = snapshotNextID
		return err
	}
	return nil
}

func (s *MemoryStore) GetBalance(ctx context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID].Balance, nil
}

func (s *MemoryStore) ListEntries(ctx context.Context, userID uint, offset, limit int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.LedgerEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]models.LedgerEntry, len(all))
	copy(out, all)
	return out, nil
}

func (s *MemoryStore) CountEntries(ctx context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, e := range s.entries {
		if e.UserID == userID {
			count++
		}
	}
	return count, nil
}

type memoryTxStore struct {
	s *MemoryStore
}

func (t *memoryTxStore) GetWallet(userID uint) (*models.Wallet, error) {
	w, ok := t.s.wallets[userID]
	if !ok {
		return &models.Wallet{UserID: userID}, nil
	}
	copied := w
	return &copied, nil
}

func (t *memoryTxStore) ApplyDelta(userID uint, delta int64, expectedVersion uint64) (int64, uint64, error) {
	w, ok := t.s.wallets[userID]
	if !ok {
		if expectedVersion != 0 {
			return 0, 0, ErrVersionConflict
		}
		if delta < 0 {
			return 0, 0, ErrInsufficientBalance
		}
		created := models.Wallet{UserID: userID, Balance: delta, Version: 1, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		t.s.wallets[userID] = created
		return created.Balance, created.Version, nil
	}
	if w.Version != expectedVersion {
		return 0, 0, ErrVersionConflict
	}
	if w.Balance+delta < 0 {
		return 0, 0, ErrInsufficientBalance
	}
	w.Balance += delta
	w.Version++
	w.UpdatedAt = time.Now()
	t.s.wallets[userID] = w
	return w.Balance, w.Version, nil
}

func (t *memoryTxStore) AppendEntry(entry *models.LedgerEntry) error {
	for _, e := range t.s.entries {
		if e.UserID == entry.UserID && e.IdempotencyKey == entry.IdempotencyKey {
			return ErrDuplicateIdempotencyKey
		}
	}
	entry.ID = t.s.nextID
	t.s.nextID++
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	t.s.entries = append(t.s.entries, *entry)
	return nil
}

func (t *memoryTxStore) FindEntryByKey(userID uint, idempotencyKey string) (*models.LedgerEntry, error) {
	for i := range t.s.entries {
		e := t.s.entries[i]
		if e.UserID == userID && e.IdempotencyKey == idempotencyKey {
			copied := e
			return &copied, nil
		}
	}
	return nil, nil
}
