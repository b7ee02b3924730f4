package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/database"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/entitlements"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/usercontext"
)

// HandleAIAuthorize is the preflight check before a metered AI feature
// starts: plan flag first, then balance against the estimate. The check
// reserves nothing; the actual debit happens with the measured cost once
// the invocation finishes.
func HandleAIAuthorize(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	estimatedCost := int64(c.QueryInt("estimated_cost", 0))
	if estimatedCost < 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "estimated_cost must not be negative")
	}

	gate := entitlements.NewGate(entitlements.NewGormSettingsSource(database.GetDB()), walletService())
	decision, err := gate.Authorize(c.Context(), userCtx.UserID, estimatedCost)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Authorization check failed")
	}

	status := fiber.StatusOK
	if !decision.Allowed {
		status = fiber.StatusPaymentRequired
		if decision.Reason == entitlements.DenyFeatureDisabled {
			status = fiber.StatusForbidden
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
		"balance": decision.Balance,
		"plan":    decision.Plan,
	})
}
