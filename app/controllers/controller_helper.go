package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/cache"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/database"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/usercontext"
)

const (
	AUTH_KEY       string = "authenticated"
	USER_ID        string = "user_id"
	USER_NAME      string = "username"
	USER_IS_ADMIN  string = "isAdmin"
	FROM_PROTECTED string = usercontext.KeyFromProtected
)

func isLoggedIn(c *fiber.Ctx) bool {
	var fromProtected bool
	if protectedValue := c.Locals(FROM_PROTECTED); protectedValue != nil {
		fromProtected = protectedValue.(bool)
	}

	return fromProtected
}

// ExtractUsername gets the username from Locals (set by middleware)
func ExtractUsername(c *fiber.Ctx) string {
	if userNameValue := c.Locals(USER_NAME); userNameValue != nil {
		if userName, ok := userNameValue.(string); ok {
			return userName
		}
	}

	return ""
}

// walletService builds the wallet ledger service with the Redis balance
// cache invalidator attached, so every applied mutation drops the cached read.
func walletService() *tokenwallet.Service {
	return tokenwallet.NewService(
		tokenwallet.NewStore(database.GetDB()),
		tokenwallet.WithBalanceInvalidator(func(userID uint) {
			_ = cache.InvalidateWalletBalance(userID)
		}),
	)
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}
