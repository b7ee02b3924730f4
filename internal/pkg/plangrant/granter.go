package plangrant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/entitlements"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/gofiber/fiber/v2/log"
)

const sweepInterval = time.Hour

// Recipient is one user eligible for a monthly token grant.
type Recipient struct {
	UserID uint
	Plan   entitlements.Plan
}

// RecipientSource lists the users whose plan carries a monthly grant.
type RecipientSource interface {
	ListGrantRecipients(ctx context.Context) ([]Recipient, error)
}

// WalletCreditor is the wallet surface the granter needs.
type WalletCreditor interface {
	Credit(ctx context.Context, userID uint, amount int64, reason, idempotencyKey, referenceID string) (*tokenwallet.Result, error)
}

// Locker guards a sweep against concurrent instances. Best effort: the
// grant keys make double sweeps harmless, the lock just avoids wasted work.
type Locker interface {
	AcquireLock(key string, ttl time.Duration) (bool, error)
	ReleaseLock(key string) error
}

// Granter credits the monthly plan allowance. The scheduler fires more
// often than monthly and may fire twice; the deterministic per-month
// ledger key plan:<user>:<YYYY-MM> makes every extra run a no-op.
type Granter struct {
	recipients RecipientSource
	wallet     WalletCreditor
	locker     Locker
	clock      func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewGranter creates a plan grant scheduler. locker may be nil.
func NewGranter(recipients RecipientSource, wallet WalletCreditor, locker Locker) *Granter {
	return &Granter{
		recipients: recipients,
		wallet:     wallet,
		locker:     locker,
		clock:      time.Now,
		stopCh:     make(chan struct{}),
	}
}

// SetClock overrides the time source for tests.
func (g *Granter) SetClock(clock func() time.Time) {
	g.clock = clock
}

// GrantKey builds the deterministic per-user per-month idempotency key.
func GrantKey(userID uint, month time.Time) string {
	return fmt.Sprintf("plan:%d:%s", userID, month.UTC().Format("2006-01"))
}

// Start runs the hourly sweep loop in the background.
func (g *Granter) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return
	}
	g.running = true

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		log.Infof("[PlanGrant] Sweep loop running (interval=%s)", sweepInterval)
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopCh:
				log.Info("[PlanGrant] Sweep loop stopping")
				return
			case <-ticker.C:
				if _, err := g.RunOnce(context.Background()); err != nil {
					log.Errorf("[PlanGrant] Sweep failed: %v", err)
				}
			}
		}
	}()
}

// Stop stops the sweep loop and waits for a running sweep to finish.
func (g *Granter) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	close(g.stopCh)
	g.running = false
	g.wg.Wait()
}

// RunOnce grants the current month's allowance to every eligible user and
// returns how many wallets were actually credited (replays excluded).
func (g *Granter) RunOnce(ctx context.Context) (int, error) {
	month := g.clock().UTC()

	if g.locker != nil {
		lockKey := "plangrant:" + month.Format("2006-01")
		got, err := g.locker.AcquireLock(lockKey, 10*time.Minute)
		if err != nil {
			log.Warnf("[PlanGrant] Lock acquire failed, sweeping anyway: %v", err)
		} else if !got {
			return 0, nil
		} else {
			defer func() { _ = g.locker.ReleaseLock(lockKey) }()
		}
	}

	recipients, err := g.recipients.ListGrantRecipients(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list grant recipients: %w", err)
	}

	granted := 0
	var firstErr error
	for _, r := range recipients {
		amount := entitlements.MonthlyGrant(r.Plan)
		if amount <= 0 {
			continue
		}
		res, err := g.wallet.Credit(ctx, r.UserID, amount,
			models.LedgerReasonPlanGrant, GrantKey(r.UserID, month), string(r.Plan))
		if err != nil {
			// One broken wallet must not starve the rest of the sweep.
			log.Errorf("[PlanGrant] Grant for user %d failed: %v", r.UserID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if res.Applied {
			granted++
		}
	}
	if granted > 0 {
		log.Infof("[PlanGrant] Granted %d wallets for %s", granted, month.Format("2006-01"))
	}
	if firstErr != nil {
		return granted, errors.Join(errors.New("plan grant sweep had failures"), firstErr)
	}
	return granted, nil
}
