package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSettings struct {
	plan      Plan
	aiEnabled bool
}

func (s stubSettings) AISettings(ctx context.Context, userID uint) (Plan, bool, error) {
	return s.plan, s.aiEnabled, nil
}

type stubBalances struct {
	balance int64
}

func (s stubBalances) Balance(ctx context.Context, userID uint) (int64, time.Time, error) {
	return s.balance, time.Now(), nil
}

func TestAuthorizeAllowsSufficientBalance(t *testing.T) {
	gate := NewGate(stubSettings{plan: PlanPremium, aiEnabled: true}, stubBalances{balance: 500})

	d, err := gate.Authorize(context.Background(), 1, 300)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(500), d.Balance)
	assert.Equal(t, PlanPremium, d.Plan)
}

func TestAuthorizeDeniesWhenFeatureDisabled(t *testing.T) {
	// The feature flag wins even with plenty of balance.
	gate := NewGate(stubSettings{plan: PlanPremiumMax, aiEnabled: false}, stubBalances{balance: 100000})

	d, err := gate.Authorize(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyFeatureDisabled, d.Reason)
}

func TestAuthorizeDeniesInsufficientBalance(t *testing.T) {
	gate := NewGate(stubSettings{plan: PlanFree, aiEnabled: true}, stubBalances{balance: 99})

	d, err := gate.Authorize(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyInsufficientBalance, d.Reason)
	assert.Equal(t, int64(99), d.Balance)
}

func TestAuthorizeZeroEstimateSkipsBalanceCheck(t *testing.T) {
	gate := NewGate(stubSettings{plan: PlanFree, aiEnabled: true}, stubBalances{balance: 0})

	d, err := gate.Authorize(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMonthlyGrant(t *testing.T) {
	assert.Equal(t, int64(0), MonthlyGrant(PlanFree))
	assert.Equal(t, int64(6000), MonthlyGrant(PlanPremium))
	assert.Equal(t, int64(20000), MonthlyGrant(PlanPremiumMax))
	assert.Equal(t, int64(0), MonthlyGrant(Plan("bogus")))
}

func TestNormalizePlan(t *testing.T) {
	assert.Equal(t, PlanPremium, NormalizePlan(" Premium "))
	assert.Equal(t, PlanPremiumMax, NormalizePlan("premium_max"))
	assert.Equal(t, PlanFree, NormalizePlan(""))
	assert.Equal(t, PlanFree, NormalizePlan("enterprise"))
}

func TestPlanRank(t *testing.T) {
	assert.Greater(t, PlanRank(PlanPremiumMax), PlanRank(PlanPremium))
	assert.Greater(t, PlanRank(PlanPremium), PlanRank(PlanFree))
}
