package controllers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/usercontext"
)

type adminAdjustRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// HandleAdminWalletAdjust applies a signed manual balance adjustment.
// Negative adjustments are bounded the same way debits are: the balance can
// reach zero but never go below it.
func HandleAdminWalletAdjust(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	targetID, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil || targetID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_user_id", "Invalid user id")
	}

	var req adminAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.Amount == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_amount", "amount must be non-zero")
	}

	actor := fmt.Sprintf("admin:%d", userCtx.UserID)
	result, err := walletService().AdjustAdmin(c.Context(), uint(targetID), req.Amount, actor, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, tokenwallet.ErrInsufficientBalance):
			return jsonError(c, fiber.StatusConflict, "insufficient_balance", "Adjustment would drive the balance negative")
		case errors.Is(err, tokenwallet.ErrInvalidArgument):
			return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, tokenwallet.ErrConflictRetryExhausted):
			return jsonError(c, fiber.StatusConflict, "conflict_retry_exhausted", "Wallet is under heavy contention, try again")
		default:
			log.Errorf("[Admin] wallet adjust failed for user %d by %s: %v", targetID, actor, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Adjustment failed")
		}
	}

	return c.JSON(fiber.Map{
		"balance":  result.Balance,
		"entry_id": result.Entry.ID,
		"applied":  result.Applied,
	})
}

// HandleAdminWalletLedger returns any user's ledger page for support work.
func HandleAdminWalletLedger(c *fiber.Ctx) error {
	targetID, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil || targetID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_user_id", "Invalid user id")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 50)
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	entries, total, err := walletService().ListLedger(c.Context(), uint(targetID), (page-1)*pageSize, pageSize)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list ledger entries")
	}

	return c.JSON(fiber.Map{
		"user_id":   targetID,
		"entries":   entries,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}
