package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outcome classifies what one payment event did.
type Outcome string

const (
	OutcomeCredited Outcome = "credited"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
	OutcomeIgnored  Outcome = "ignored"
)

var (
	ErrUnknownPack      = errors.New("unknown token pack")
	ErrPurchaseNotOwned = errors.New("purchase belongs to another user")
)

// OrderCreator opens a checkout order at the payment provider.
type OrderCreator interface {
	CreateOrder(ctx context.Context, purchase *models.Purchase) (*PayfrontOrder, error)
}

// WalletCreditor is the wallet surface the orchestrator needs.
type WalletCreditor interface {
	Credit(ctx context.Context, userID uint, amount int64, reason, idempotencyKey, referenceID string) (*tokenwallet.Result, error)
}

// Service orchestrates token pack purchases: it owns the purchase state
// machine (pending -> captured -> credited, or pending -> failed/canceled)
// and turns a captured payment into exactly one wallet credit. The credit
// uses the purchase ID as ledger idempotency key, so redelivered or
// reprocessed events cannot double-credit.
type Service struct {
	repo   Repository
	wallet WalletCreditor
	orders OrderCreator
	clock  func() time.Time
}

// NewService creates a purchase orchestrator. orders may be nil when no
// payment provider is configured (local development).
func NewService(repo Repository, wallet WalletCreditor, orders OrderCreator) *Service {
	return &Service{repo: repo, wallet: wallet, orders: orders, clock: time.Now}
}

// NewServiceFromDB wires the orchestrator against GORM and the given wallet.
func NewServiceFromDB(db *gorm.DB, wallet WalletCreditor, orders OrderCreator) *Service {
	return NewService(NewRepository(db), wallet, orders)
}

// CheckoutResult is what the purchase endpoint returns to the client.
type CheckoutResult struct {
	Purchase    *models.Purchase
	CheckoutURL string
	// Created is false when the client idempotency key matched an existing
	// purchase and that purchase was returned unchanged.
	Created bool
}

// CreatePurchase opens a pending purchase for a token pack. The client
// supplies the idempotency key, so a double-submitted checkout form maps
// to one purchase row and one provider order.
func (s *Service) CreatePurchase(ctx context.Context, userID uint, packID, clientKey string) (*CheckoutResult, error) {
	key := strings.TrimSpace(clientKey)
	if userID == 0 || key == "" {
		return nil, errors.New("user_id and idempotency key are required")
	}
	pack, ok := models.FindTokenPack(strings.TrimSpace(packID))
	if !ok {
		return nil, ErrUnknownPack
	}

	purchase := &models.Purchase{
		ID:             uuid.New().String(),
		UserID:         userID,
		PackID:         pack.ID,
		TokenAmount:    pack.Tokens,
		PriceCents:     pack.PriceCents,
		Currency:       pack.Currency,
		Status:         models.PurchaseStatusPending,
		IdempotencyKey: key,
	}

	created, stored, err := s.repo.CreatePurchaseIfNotExists(purchase)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}
	if stored.UserID != userID {
		return nil, ErrPurchaseNotOwned
	}
	if !created {
		return &CheckoutResult{Purchase: stored, Created: false}, nil
	}

	result := &CheckoutResult{Purchase: stored, Created: true}
	if s.orders != nil {
		order, err := s.orders.CreateOrder(ctx, stored)
		if err != nil {
			// The pending purchase stays; the client can retry checkout with
			// the same key and get a fresh provider order.
			return nil, fmt.Errorf("failed to open provider order: %w", err)
		}
		if err := s.repo.SetProviderOrderID(stored.ID, order.OrderID); err != nil {
			return nil, fmt.Errorf("failed to store provider order id: %w", err)
		}
		stored.ProviderOrderID = order.OrderID
		result.CheckoutURL = order.CheckoutURL
	}
	return result, nil
}

// OnPaymentEvent applies one normalized provider event to the purchase
// state machine. Events for unknown orders and events arriving after a
// terminal state are dropped with a log line, never an error, so the
// provider stops redelivering.
func (s *Service) OnPaymentEvent(ctx context.Context, ev PaymentEvent) (Outcome, error) {
	orderID := strings.TrimSpace(ev.ProviderOrderID)
	if orderID == "" {
		return OutcomeIgnored, errors.New("payment event missing provider order id")
	}

	purchase, err := s.repo.GetPurchaseByProviderOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Payment] event %s for unknown order %s dropped", ev.EventType, orderID)
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, fmt.Errorf("purchase lookup failed: %w", err)
	}

	switch ev.EventType {
	case EventPaymentCaptured:
		return s.handleCaptured(ctx, purchase, ev)
	case EventPaymentFailed:
		moved, err := s.repo.TransitionStatus(purchase.ID,
			[]string{models.PurchaseStatusPending, models.PurchaseStatusCaptured},
			models.PurchaseStatusFailed, nil)
		if err != nil {
			return OutcomeIgnored, err
		}
		if !moved {
			log.Infof("[Payment] failed event for purchase %s in state %s dropped", purchase.ID, purchase.Status)
			return OutcomeIgnored, nil
		}
		return OutcomeFailed, nil
	case EventPaymentCanceled:
		moved, err := s.repo.TransitionStatus(purchase.ID,
			[]string{models.PurchaseStatusPending},
			models.PurchaseStatusCanceled, nil)
		if err != nil {
			return OutcomeIgnored, err
		}
		if !moved {
			log.Infof("[Payment] canceled event for purchase %s in state %s dropped", purchase.ID, purchase.Status)
			return OutcomeIgnored, nil
		}
		return OutcomeCanceled, nil
	default:
		log.Warnf("[Payment] unsupported event type %s dropped", ev.EventType)
		return OutcomeIgnored, nil
	}
}

func (s *Service) handleCaptured(ctx context.Context, purchase *models.Purchase, ev PaymentEvent) (Outcome, error) {
	switch purchase.Status {
	case models.PurchaseStatusCredited:
		return OutcomeIgnored, nil
	case models.PurchaseStatusFailed, models.PurchaseStatusCanceled:
		log.Warnf("[Payment] captured event for terminal purchase %s (%s) dropped", purchase.ID, purchase.Status)
		return OutcomeIgnored, nil
	}

	if ev.AmountCents > 0 && ev.AmountCents != purchase.PriceCents {
		log.Warnf("[Payment] purchase %s amount mismatch: expected %d got %d", purchase.ID, purchase.PriceCents, ev.AmountCents)
	}

	// pending -> captured. Losing this CAS means another event moved the
	// purchase after our read, so re-read before touching the wallet: a
	// replay after a crash between credit and the final transition finds
	// the purchase already captured and may continue, anything terminal
	// gets dropped.
	moved, err := s.repo.TransitionStatus(purchase.ID,
		[]string{models.PurchaseStatusPending},
		models.PurchaseStatusCaptured, nil)
	if err != nil {
		return OutcomeIgnored, err
	}
	if !moved {
		current, err := s.repo.GetPurchaseByID(purchase.ID)
		if err != nil {
			return OutcomeIgnored, fmt.Errorf("purchase re-read failed: %w", err)
		}
		switch current.Status {
		case models.PurchaseStatusCaptured:
			// crash replay, finish the credit below
		case models.PurchaseStatusCredited:
			return OutcomeIgnored, nil
		default:
			log.Warnf("[Payment] captured event for purchase %s lost race to state %s, dropped", purchase.ID, current.Status)
			return OutcomeIgnored, nil
		}
	}

	// The purchase ID as ledger key makes this credit exactly-once no
	// matter how often the event is reprocessed.
	if _, err := s.wallet.Credit(ctx, purchase.UserID, purchase.TokenAmount,
		models.LedgerReasonPurchase, purchase.ID, purchase.ID); err != nil {
		return OutcomeIgnored, fmt.Errorf("wallet credit failed: %w", err)
	}

	now := s.clock().UTC()
	moved, err = s.repo.TransitionStatus(purchase.ID,
		[]string{models.PurchaseStatusCaptured},
		models.PurchaseStatusCredited, &now)
	if err != nil {
		return OutcomeIgnored, err
	}
	if !moved {
		current, err := s.repo.GetPurchaseByID(purchase.ID)
		if err != nil {
			return OutcomeIgnored, fmt.Errorf("purchase re-read failed: %w", err)
		}
		if current.Status == models.PurchaseStatusCredited {
			// A concurrent replay finished the transition first.
			return OutcomeCredited, nil
		}
		log.Warnf("[Payment] purchase %s moved to %s after credit, leaving it there", purchase.ID, current.Status)
		return OutcomeIgnored, nil
	}
	return OutcomeCredited, nil
}

// ListPurchases returns a user's recent purchases, newest first.
func (s *Service) ListPurchases(ctx context.Context, userID uint, limit int) ([]models.Purchase, error) {
	_ = ctx
	return s.repo.ListPurchasesByUser(userID, limit)
}
