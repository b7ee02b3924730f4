package plangrant

import (
	"context"
	"testing"
	"time"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/entitlements"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecipients struct {
	recipients []Recipient
}

func (s stubRecipients) ListGrantRecipients(ctx context.Context) ([]Recipient, error) {
	return s.recipients, nil
}

type stubLocker struct {
	denied   bool
	acquired []string
	released []string
}

func (s *stubLocker) AcquireLock(key string, ttl time.Duration) (bool, error) {
	s.acquired = append(s.acquired, key)
	return !s.denied, nil
}

func (s *stubLocker) ReleaseLock(key string) error {
	s.released = append(s.released, key)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGrantKeyIsPerUserPerMonth(t *testing.T) {
	feb := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "plan:7:2026-02", GrantKey(7, feb))
	// Any instant within the month maps to the same key.
	assert.Equal(t, GrantKey(7, feb), GrantKey(7, feb.AddDate(0, 0, 10)))
	assert.NotEqual(t, GrantKey(7, feb), GrantKey(7, feb.AddDate(0, 1, 0)))
	assert.NotEqual(t, GrantKey(7, feb), GrantKey(8, feb))
}

func TestRunOnceGrantsByPlan(t *testing.T) {
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	granter := NewGranter(stubRecipients{recipients: []Recipient{
		{UserID: 1, Plan: entitlements.PlanPremium},
		{UserID: 2, Plan: entitlements.PlanPremiumMax},
		{UserID: 3, Plan: entitlements.PlanFree},
	}}, wallet, nil)
	granter.SetClock(fixedClock(time.Date(2026, 2, 1, 0, 5, 0, 0, time.UTC)))

	granted, err := granter.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, granted)

	b1, _, _ := wallet.Balance(context.Background(), 1)
	b2, _, _ := wallet.Balance(context.Background(), 2)
	b3, _, _ := wallet.Balance(context.Background(), 3)
	assert.Equal(t, int64(6000), b1)
	assert.Equal(t, int64(20000), b2)
	assert.Equal(t, int64(0), b3)
}

func TestRunOnceIsIdempotentWithinMonth(t *testing.T) {
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	granter := NewGranter(stubRecipients{recipients: []Recipient{
		{UserID: 1, Plan: entitlements.PlanPremium},
	}}, wallet, nil)
	granter.SetClock(fixedClock(time.Date(2026, 2, 1, 0, 5, 0, 0, time.UTC)))

	granted, err := granter.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, granted)

	// Scheduler fires again in the same month: zero new grants.
	granted, err = granter.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, granted)

	balance, _, err := wallet.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), balance)
}

func TestRunOnceGrantsAgainNextMonth(t *testing.T) {
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	granter := NewGranter(stubRecipients{recipients: []Recipient{
		{UserID: 1, Plan: entitlements.PlanPremium},
	}}, wallet, nil)

	granter.SetClock(fixedClock(time.Date(2026, 2, 1, 0, 5, 0, 0, time.UTC)))
	_, err := granter.RunOnce(context.Background())
	require.NoError(t, err)

	granter.SetClock(fixedClock(time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC)))
	granted, err := granter.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, granted)

	balance, _, err := wallet.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), balance)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	locker := &stubLocker{denied: true}
	granter := NewGranter(stubRecipients{recipients: []Recipient{
		{UserID: 1, Plan: entitlements.PlanPremium},
	}}, wallet, locker)
	granter.SetClock(fixedClock(time.Date(2026, 2, 1, 0, 5, 0, 0, time.UTC)))

	granted, err := granter.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, granted)
	assert.Equal(t, []string{"plangrant:2026-02"}, locker.acquired)
	assert.Empty(t, locker.released)
}

func TestRunOnceReleasesLock(t *testing.T) {
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	locker := &stubLocker{}
	granter := NewGranter(stubRecipients{recipients: nil}, wallet, locker)
	granter.SetClock(fixedClock(time.Date(2026, 2, 1, 0, 5, 0, 0, time.UTC)))

	_, err := granter.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"plangrant:2026-02"}, locker.released)
}
