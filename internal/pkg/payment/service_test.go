package payment

import (
	"context"
	"testing"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	calls int
}

func (s *stubOrders) CreateOrder(ctx context.Context, purchase *models.Purchase) (*PayfrontOrder, error) {
	s.calls++
	return &PayfrontOrder{OrderID: "order-" + purchase.ID, CheckoutURL: "https://pay.example/" + purchase.ID}, nil
}

func newTestOrchestrator(t *testing.T) (*Service, *MemoryRepository, *tokenwallet.Service, *stubOrders) {
	t.Helper()
	repo := NewMemoryRepository()
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	orders := &stubOrders{}
	return NewService(repo, wallet, orders), repo, wallet, orders
}

func TestCreatePurchaseOpensProviderOrder(t *testing.T) {
	svc, _, _, orders := newTestOrchestrator(t)

	res, err := svc.CreatePurchase(context.Background(), 1, "starter", "client-key-1")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, models.PurchaseStatusPending, res.Purchase.Status)
	assert.Equal(t, int64(5000), res.Purchase.TokenAmount)
	assert.Equal(t, int64(499), res.Purchase.PriceCents)
	assert.NotEmpty(t, res.CheckoutURL)
	assert.Equal(t, 1, orders.calls)
}

func TestCreatePurchaseIdempotentOnClientKey(t *testing.T) {
	svc, _, _, orders := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)

	// Double form submission: same key, same purchase, no second order.
	second, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Purchase.ID, second.Purchase.ID)
	assert.Equal(t, 1, orders.calls)
}

func TestCreatePurchaseRejectsForeignKeyReplay(t *testing.T) {
	svc, _, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)

	_, err = svc.CreatePurchase(ctx, 2, "starter", "client-key-1")
	assert.ErrorIs(t, err, ErrPurchaseNotOwned)
}

func TestCreatePurchaseUnknownPack(t *testing.T) {
	svc, _, _, _ := newTestOrchestrator(t)

	_, err := svc.CreatePurchase(context.Background(), 1, "mega", "client-key-1")
	assert.ErrorIs(t, err, ErrUnknownPack)
}

func TestCapturedEventCreditsExactlyOnce(t *testing.T) {
	svc, _, wallet, _ := newTestOrchestrator(t)
	ctx := context.Background()

	res, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)
	orderID := res.Purchase.ProviderOrderID
	require.NotEmpty(t, orderID)

	ev := PaymentEvent{
		Provider:        ProviderPayfront,
		EventType:       EventPaymentCaptured,
		ProviderOrderID: orderID,
		AmountCents:     499,
	}

	outcome, err := svc.OnPaymentEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCredited, outcome)

	balance, _, err := wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)

	stored, err := svc.repo.GetPurchaseByID(res.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCredited, stored.Status)
	assert.NotNil(t, stored.CreditedAt)

	// Redelivery: purchase is terminal, no second credit.
	outcome, err = svc.OnPaymentEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	balance, _, err = wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestCapturedReprocessingAfterPartialFailure(t *testing.T) {
	// Simulates a crash after the wallet credit but before the purchase was
	// marked credited: the purchase sits in captured, the ledger entry
	// exists. Reprocessing must finish the transition without double credit.
	svc, repo, wallet, _ := newTestOrchestrator(t)
	ctx := context.Background()

	res, err := svc.CreatePurchase(ctx, 1, "analyst", "client-key-1")
	require.NoError(t, err)

	_, err = repo.TransitionStatus(res.Purchase.ID, []string{models.PurchaseStatusPending}, models.PurchaseStatusCaptured, nil)
	require.NoError(t, err)
	_, err = wallet.Credit(ctx, 1, res.Purchase.TokenAmount, models.LedgerReasonPurchase, res.Purchase.ID, res.Purchase.ID)
	require.NoError(t, err)

	outcome, err := svc.OnPaymentEvent(ctx, PaymentEvent{
		EventType:       EventPaymentCaptured,
		ProviderOrderID: res.Purchase.ProviderOrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCredited, outcome)

	balance, _, err := wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), balance)
}

func TestFailedAndCanceledTransitions(t *testing.T) {
	svc, _, wallet, _ := newTestOrchestrator(t)
	ctx := context.Background()

	res, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)

	outcome, err := svc.OnPaymentEvent(ctx, PaymentEvent{
		EventType:       EventPaymentFailed,
		ProviderOrderID: res.Purchase.ProviderOrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	// Captured after failed: terminal, dropped, no credit.
	outcome, err = svc.OnPaymentEvent(ctx, PaymentEvent{
		EventType:       EventPaymentCaptured,
		ProviderOrderID: res.Purchase.ProviderOrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	balance, _, err := wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	// A second purchase canceled from pending.
	res2, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-2")
	require.NoError(t, err)
	outcome, err = svc.OnPaymentEvent(ctx, PaymentEvent{
		EventType:       EventPaymentCanceled,
		ProviderOrderID: res2.Purchase.ProviderOrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, outcome)
}

// racingRepository lets a test inject a concurrent status change between
// the orchestrator's purchase read and its first CAS.
type racingRepository struct {
	*MemoryRepository
	afterRead func()
}

func (r *racingRepository) GetPurchaseByProviderOrderID(providerOrderID string) (*models.Purchase, error) {
	p, err := r.MemoryRepository.GetPurchaseByProviderOrderID(providerOrderID)
	if err == nil && r.afterRead != nil {
		hook := r.afterRead
		r.afterRead = nil
		hook()
	}
	return p, err
}

func TestCapturedLosesRaceToFailedEvent(t *testing.T) {
	repo := NewMemoryRepository()
	racing := &racingRepository{MemoryRepository: repo}
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	svc := NewService(racing, wallet, &stubOrders{})
	ctx := context.Background()

	res, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)

	// A failed event lands between the captured handler's read and its
	// pending -> captured transition. The purchase must stay failed and the
	// wallet must not be credited.
	racing.afterRead = func() {
		moved, err := repo.TransitionStatus(res.Purchase.ID,
			[]string{models.PurchaseStatusPending}, models.PurchaseStatusFailed, nil)
		require.NoError(t, err)
		require.True(t, moved)
	}

	outcome, err := svc.OnPaymentEvent(ctx, PaymentEvent{
		EventType:       EventPaymentCaptured,
		ProviderOrderID: res.Purchase.ProviderOrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	balance, _, err := wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	stored, err := repo.GetPurchaseByID(res.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusFailed, stored.Status)
}

func TestCapturedLosesRaceToCompletedReplay(t *testing.T) {
	repo := NewMemoryRepository()
	racing := &racingRepository{MemoryRepository: repo}
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	svc := NewService(racing, wallet, &stubOrders{})
	ctx := context.Background()

	res, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)

	// A redelivered duplicate runs the whole flow to completion between our
	// read and the first CAS. No second credit.
	racing.afterRead = func() {
		_, err := repo.TransitionStatus(res.Purchase.ID,
			[]string{models.PurchaseStatusPending}, models.PurchaseStatusCaptured, nil)
		require.NoError(t, err)
		_, err = wallet.Credit(ctx, 1, res.Purchase.TokenAmount,
			models.LedgerReasonPurchase, res.Purchase.ID, res.Purchase.ID)
		require.NoError(t, err)
		now := time.Now().UTC()
		_, err = repo.TransitionStatus(res.Purchase.ID,
			[]string{models.PurchaseStatusCaptured}, models.PurchaseStatusCredited, &now)
		require.NoError(t, err)
	}

	outcome, err := svc.OnPaymentEvent(ctx, PaymentEvent{
		EventType:       EventPaymentCaptured,
		ProviderOrderID: res.Purchase.ProviderOrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	balance, _, err := wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestUnknownEventTypeDropped(t *testing.T) {
	svc, repo, wallet, _ := newTestOrchestrator(t)
	ctx := context.Background()

	res, err := svc.CreatePurchase(ctx, 1, "starter", "client-key-1")
	require.NoError(t, err)

	outcome, err := svc.OnPaymentEvent(ctx, PaymentEvent{
		EventType:       "payment.chargeback_opened",
		ProviderOrderID: res.Purchase.ProviderOrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	stored, err := repo.GetPurchaseByID(res.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusPending, stored.Status)

	balance, _, err := wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestUnknownOrderDropped(t *testing.T) {
	svc, _, _, _ := newTestOrchestrator(t)

	outcome, err := svc.OnPaymentEvent(context.Background(), PaymentEvent{
		EventType:       EventPaymentCaptured,
		ProviderOrderID: "order-nobody-knows",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestParsePayfrontWebhookEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt-1",
		"type": "order.paid",
		"created_at": "2026-02-01T12:00:00Z",
		"data": {"order_id": "order-9", "amount_cents": 499, "currency": "eur"}
	}`)

	ev, err := ParsePayfrontWebhookEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentCaptured, ev.EventType)
	assert.Equal(t, "order-9", ev.ProviderOrderID)
	assert.Equal(t, int64(499), ev.AmountCents)
	assert.Equal(t, "EUR", ev.Currency)
	require.NotNil(t, ev.OccurredAt)

	// Unknown but well-formed types parse and keep their type, so the
	// orchestrator can drop them and the provider gets a 200.
	ev, err = ParsePayfrontWebhookEvent([]byte(`{"type":"something.else","data":{"order_id":"o"}}`))
	require.NoError(t, err)
	assert.Equal(t, "something.else", ev.EventType)

	_, err = ParsePayfrontWebhookEvent([]byte(`{"data":{"order_id":"o"}}`))
	assert.Error(t, err)

	_, err = ParsePayfrontWebhookEvent([]byte(`{"type":"payment.captured","data":{}}`))
	assert.Error(t, err)
}
