package entitlements

import (
	"context"
	"fmt"
	"time"
)

// Denial reasons returned to AI feature call sites. The gate never debits;
// it is an advisory pre-check before the metered invocation starts.
const (
	DenyFeatureDisabled     = "feature_disabled"
	DenyInsufficientBalance = "insufficient_balance"
)

// Decision is the outcome of one gate check.
type Decision struct {
	Allowed bool
	Reason  string
	Balance int64
	Plan    Plan
}

// SettingsSource yields the plan and AI feature flag for a user.
type SettingsSource interface {
	AISettings(ctx context.Context, userID uint) (plan Plan, aiEnabled bool, err error)
}

// BalanceSource yields the current token balance for a user.
type BalanceSource interface {
	Balance(ctx context.Context, userID uint) (int64, time.Time, error)
}

// Gate decides whether a user may start an AI feature invocation with an
// estimated token cost. The actual charge happens afterwards with the
// measured cost, so a passed check does not reserve tokens.
type Gate struct {
	settings SettingsSource
	balances BalanceSource
}

// NewGate creates an entitlement gate.
func NewGate(settings SettingsSource, balances BalanceSource) *Gate {
	return &Gate{settings: settings, balances: balances}
}

// Authorize checks the AI flag first, then the balance against the
// estimate. estimatedCost 0 skips the balance check.
func (g *Gate) Authorize(ctx context.Context, userID uint, estimatedCost int64) (*Decision, error) {
	plan, aiEnabled, err := g.settings.AISettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user settings: %w", err)
	}
	if !aiEnabled {
		return &Decision{Allowed: false, Reason: DenyFeatureDisabled, Plan: plan}, nil
	}

	balance, _, err := g.balances.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if estimatedCost > 0 && balance < estimatedCost {
		return &Decision{Allowed: false, Reason: DenyInsufficientBalance, Balance: balance, Plan: plan}, nil
	}
	return &Decision{Allowed: true, Balance: balance, Plan: plan}, nil
}
