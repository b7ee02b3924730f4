package tokenwallet

import (
	"context"
	"errors"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"gorm.io/gorm"
)

// gormStore persists wallets and ledger entries via GORM/MySQL. Atomicity
// comes from a database transaction; the version-guarded UPDATE is the
// compare-and-swap point that serializes concurrent mutations per user.
type gormStore struct {
	db *gorm.DB
}

// NewStore creates a wallet store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transact(ctx context.Context, fn func(TxStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxStore{tx: tx})
	})
}

func (s *gormStore) GetBalance(ctx context.Context, userID uint) (int64, error) {
	var w models.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

func (s *gormStore) ListEntries(ctx context.Context, userID uint, offset, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *gormStore) CountEntries(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

type gormTxStore struct {
	tx *gorm.DB
}

func (s *gormTxStore) GetWallet(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := s.tx.Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Lazy wallet: a user without balance-affecting history reads as
		// balance 0, version 0. The row is created on first ApplyDelta.
		return &models.Wallet{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *gormTxStore) ApplyDelta(userID uint, delta int64, expectedVersion uint64) (int64, uint64, error) {
	if expectedVersion == 0 {
		return s.createWallet(userID, delta)
	}

	res := s.tx.Model(&models.Wallet{}).
		Where("user_id = ? AND version = ? AND balance + ? >= 0", userID, expectedVersion, delta).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a lost race from a genuine shortfall.
		var w models.Wallet
		if err := s.tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, 0, ErrVersionConflict
			}
			return 0, 0, err
		}
		if w.Version != expectedVersion {
			return 0, 0, ErrVersionConflict
		}
		return 0, 0, ErrInsufficientBalance
	}

	var w models.Wallet
	if err := s.tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
		return 0, 0, err
	}
	return w.Balance, w.Version, nil
}

func (s *gormTxStore) createWallet(userID uint, delta int64) (int64, uint64, error) {
	if delta < 0 {
		return 0, 0, ErrInsufficientBalance
	}
	w := models.Wallet{UserID: userID, Balance: delta, Version: 1}
	if err := s.tx.Create(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another transaction created the wallet first; the caller
			// retries against the fresh version.
			return 0, 0, ErrVersionConflict
		}
		return 0, 0, err
	}
	return w.Balance, w.Version, nil
}

func (s *gormTxStore) AppendEntry(entry *models.LedgerEntry) error {
	if err := s.tx.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateIdempotencyKey
		}
		return err
	}
	return nil
}

func (s *gormTxStore) FindEntryByKey(userID uint, idempotencyKey string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := s.tx.Where("user_id = ? AND idempotency_key = ?", userID, idempotencyKey).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
