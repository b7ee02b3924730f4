package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/cache"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/usercontext"
)

const balanceCacheTTL = 30 * time.Second

// HandleWalletBalance returns the current token balance. Reads go through a
// short-TTL Redis cache that every wallet mutation invalidates; the ledger
// itself is never cached.
func HandleWalletBalance(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	if balance, err := cache.GetCachedWalletBalance(userCtx.UserID); err == nil {
		return c.JSON(fiber.Map{
			"balance": balance,
			"as_of":   time.Now().UTC(),
			"plan":    userCtx.Plan,
			"cached":  true,
		})
	}

	balance, asOf, err := walletService().Balance(c.Context(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read balance")
	}
	_ = cache.CacheWalletBalance(userCtx.UserID, balance, balanceCacheTTL)

	return c.JSON(fiber.Map{
		"balance": balance,
		"as_of":   asOf,
		"plan":    userCtx.Plan,
	})
}

// HandleWalletLedger returns one ascending-by-id page of the user's ledger.
func HandleWalletLedger(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 50)
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	entries, total, err := walletService().ListLedger(c.Context(), userCtx.UserID, (page-1)*pageSize, pageSize)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list ledger entries")
	}

	return c.JSON(fiber.Map{
		"entries":   entries,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// HandleWalletPacks lists the purchasable token packs.
func HandleWalletPacks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"packs": models.AllTokenPacks(),
	})
}
