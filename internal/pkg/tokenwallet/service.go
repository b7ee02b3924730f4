package tokenwallet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultMaxAttempts = 5
	defaultBackoffBase = 10 * time.Millisecond
)

// Service is the transactional core of the AI token wallet.
//
// Money invariants:
// - No balance update without a ledger entry, both in one atomic unit
// - The ledger is append-only; entries are never mutated or deleted
// - Balance never goes negative, admin adjustments included
// - Per-user serialization happens only at the version CAS; concurrent
//   mutations race, the loser retries with bounded jittered backoff
type Service struct {
	store       Store
	maxAttempts int
	backoffBase time.Duration
	// clock is injectable for deterministic tests.
	clock func() time.Time
	// invalidate drops external balance caches after a mutation; nil is fine.
	invalidate func(userID uint)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithBalanceInvalidator registers a callback run after every applied mutation.
func WithBalanceInvalidator(fn func(userID uint)) Option {
	return func(s *Service) { s.invalidate = fn }
}

// WithRetryPolicy overrides the CAS retry bounds.
func WithRetryPolicy(maxAttempts int, backoffBase time.Duration) Option {
	return func(s *Service) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if backoffBase > 0 {
			s.backoffBase = backoffBase
		}
	}
}

// NewService creates the wallet ledger service on top of a Store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result reports the outcome of one wallet operation.
type Result struct {
	Balance int64
	Entry   *models.LedgerEntry
	// Applied is false when an idempotency key matched an existing entry
	// and the prior result was returned unchanged.
	Applied bool
}

// Balance returns the current balance and the read timestamp. Users without
// a wallet read as 0.
func (s *Service) Balance(ctx context.Context, userID uint) (int64, time.Time, error) {
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, s.clock().UTC(), nil
}

// ListLedger returns one page of ledger entries, oldest first, plus the
// total entry count for pagination.
func (s *Service) ListLedger(ctx context.Context, userID uint, offset, limit int) ([]models.LedgerEntry, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.store.ListEntries(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	total, err := s.store.CountEntries(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return entries, total, nil
}

// DebitUsage charges the measured cost of one AI feature invocation.
// The invocation id doubles as idempotency scope, so a retried call site
// cannot double-charge.
func (s *Service) DebitUsage(ctx context.Context, userID uint, measuredCost int64, invocationID string) (*Result, error) {
	if measuredCost <= 0 || strings.TrimSpace(invocationID) == "" {
		return nil, ErrInvalidArgument
	}
	return s.apply(ctx, userID, -measuredCost, models.LedgerReasonUsageDebit, "usage:"+invocationID, invocationID)
}

// Credit adds tokens idempotently. A repeated idempotency key returns the
// prior result instead of re-crediting.
func (s *Service) Credit(ctx context.Context, userID uint, amount int64, reason, idempotencyKey, referenceID string) (*Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidArgument
	}
	switch reason {
	case models.LedgerReasonPlanGrant, models.LedgerReasonPurchase, models.LedgerReasonRefund:
	default:
		return nil, ErrInvalidArgument
	}
	return s.apply(ctx, userID, amount, reason, idempotencyKey, referenceID)
}

// RefundInvocation compensates a canceled AI invocation that was already
// debited. The refund gets its own ledger entry under a fresh key; the
// original debit entry stays untouched.
func (s *Service) RefundInvocation(ctx context.Context, userID uint, amount int64, invocationID string) (*Result, error) {
	if strings.TrimSpace(invocationID) == "" {
		return nil, ErrInvalidArgument
	}
	return s.Credit(ctx, userID, amount, models.LedgerReasonRefund, "refund:"+invocationID, invocationID)
}

// AdjustAdmin applies a signed manual correction. Negative adjustments are
// bounded by the same insufficient-balance guard as debits: an adjustment
// may drive the balance to exactly zero, never below.
func (s *Service) AdjustAdmin(ctx context.Context, userID uint, signedAmount int64, adminActorID, note string) (*Result, error) {
	if signedAmount == 0 {
		return nil, ErrInvalidArgument
	}
	actor := strings.TrimSpace(adminActorID)
	if actor == "" {
		return nil, ErrInvalidArgument
	}
	ref := "admin:" + actor
	if n := strings.TrimSpace(note); n != "" {
		ref += ":" + n
	}
	key := fmt.Sprintf("adjust:%s:%d", actor, s.clock().UnixNano())
	return s.apply(ctx, userID, signedAmount, models.LedgerReasonAdminAdjustment, key, ref)
}

// apply runs one balance mutation through the CAS retry loop. On success
// both the ledger entry and the wallet delta are committed; on failure
// neither took visible effect.
func (s *Service) apply(ctx context.Context, userID uint, delta int64, reason, idempotencyKey, referenceID string) (*Result, error) {
	if userID == 0 || delta == 0 || strings.TrimSpace(idempotencyKey) == "" {
		return nil, ErrInvalidArgument
	}

	var res *Result
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := s.store.Transact(ctx, func(tx TxStore) error {
			existing, err := tx.FindEntryByKey(userID, idempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				res = &Result{Balance: existing.BalanceAfter, Entry: existing, Applied: false}
				return nil
			}

			w, err := tx.GetWallet(userID)
			if err != nil {
				return err
			}
			if delta < 0 && w.Balance+delta < 0 {
				return ErrInsufficientBalance
			}

			newBalance, _, err := tx.ApplyDelta(userID, delta, w.Version)
			if err != nil {
				return err
			}

			entry := &models.LedgerEntry{
				UserID:         userID,
				Delta:          delta,
				BalanceAfter:   newBalance,
				Reason:         reason,
				IdempotencyKey: idempotencyKey,
				ReferenceID:    referenceID,
				CreatedAt:      s.clock().UTC(),
			}
			if err := tx.AppendEntry(entry); err != nil {
				return err
			}
			res = &Result{Balance: newBalance, Entry: entry, Applied: true}
			return nil
		})

		switch {
		case err == nil:
			if res.Applied && s.invalidate != nil {
				s.invalidate(userID)
			}
			return res, nil
		case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrDuplicateIdempotencyKey):
			// Lost the race; the next attempt reads the fresh version and,
			// for a duplicate key, finds the surviving entry.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoffDelay(attempt)):
			}
		case errors.Is(err, ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		default:
			return nil, fmt.Errorf("wallet mutation failed: %w", err)
		}
	}

	log.Warnf("[Wallet] user %d: %d attempts exhausted for key %s", userID, s.maxAttempts, idempotencyKey)
	return nil, ErrConflictRetryExhausted
}

// backoffDelay doubles the base per attempt with +/-50% jitter.
func (s *Service) backoffDelay(attempt int) time.Duration {
	base := s.backoffBase << uint(attempt)
	return base/2 + time.Duration(rand.Int63n(int64(base)))
}
