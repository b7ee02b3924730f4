package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/MarketLensHQ/MarketLens/app/repository"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/database"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/env"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/idempotency"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/mail"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/payment"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/usercontext"
)

type createPurchaseRequest struct {
	PackID         string `json:"pack_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

func purchaseService() *payment.Service {
	var orders payment.OrderCreator
	if env.GetEnv("PAYFRONT_API_KEY", "") != "" {
		orders = payment.NewPayfrontClientFromEnv()
	}
	return payment.NewServiceFromDB(database.GetDB(), walletService(), orders)
}

// HandleCreatePurchase opens a pending token pack purchase and a provider
// checkout order. The client idempotency key (body field or Idempotency-Key
// header) makes double submissions return the existing purchase.
func HandleCreatePurchase(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	var req createPurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(c.Get("Idempotency-Key"))
	}
	if key == "" {
		return jsonError(c, fiber.StatusBadRequest, "missing_idempotency_key", "idempotency_key is required")
	}

	result, err := purchaseService().CreatePurchase(c.Context(), userCtx.UserID, req.PackID, key)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownPack):
			return jsonError(c, fiber.StatusBadRequest, "unknown_pack", "Unknown token pack")
		case errors.Is(err, payment.ErrPurchaseNotOwned):
			return jsonError(c, fiber.StatusConflict, "idempotency_key_conflict", "Idempotency key is already in use")
		default:
			log.Errorf("[Purchase] create failed for user %d: %v", userCtx.UserID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create purchase")
		}
	}

	status := fiber.StatusCreated
	if !result.Created {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"purchase_id":  result.Purchase.ID,
		"pack_id":      result.Purchase.PackID,
		"token_amount": result.Purchase.TokenAmount,
		"price_cents":  result.Purchase.PriceCents,
		"currency":     result.Purchase.Currency,
		"status":       result.Purchase.Status,
		"checkout_url": result.CheckoutURL,
	})
}

// HandleListPurchases returns the user's recent purchases, newest first.
func HandleListPurchases(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	purchases, err := purchaseService().ListPurchases(c.Context(), userCtx.UserID, 50)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list purchases")
	}
	return c.JSON(fiber.Map{"purchases": purchases})
}

// HandlePayfrontWebhook receives signed payment events. Every delivery is
// recorded before processing; duplicates answer 200 without side effects,
// invalid signatures answer 401. Processing failures answer 500 so the
// provider redelivers; the idempotency key on the wallet credit makes
// redelivery safe.
func HandlePayfrontWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	eventID := strings.TrimSpace(c.Get("X-Payfront-Event-ID"))
	eventType := strings.TrimSpace(c.Get("X-Payfront-Event"))
	signature := strings.TrimSpace(c.Get("X-Payfront-Signature"))
	secret := env.GetEnv("PAYFRONT_WEBHOOK_SECRET", "")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := payment.VerifyPayfrontWebhookSignature(rawBody, signature, secret)

	guard := idempotency.NewGuard(database.GetDB())
	created, stored, err := guard.Register(ctx, idempotency.EventInput{
		Provider:        payment.ProviderPayfront,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = guard.MarkProcessed(ctx, stored.ID, "invalid webhook signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := payment.ParsePayfrontWebhookEvent(rawBody)
	if err != nil {
		_ = guard.MarkProcessed(ctx, stored.ID, err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	event.ProviderEventID = stored.ProviderEventID

	outcome, procErr := purchaseService().OnPaymentEvent(ctx, *event)
	if procErr != nil {
		_ = guard.MarkProcessed(ctx, stored.ID, procErr.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_processing_failed"})
	}
	_ = guard.MarkProcessed(ctx, stored.ID, "")

	if outcome == payment.OutcomeCredited {
		go sendPurchaseReceipt(event.ProviderOrderID)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": string(outcome)})
}

// sendPurchaseReceipt mails a receipt for a credited purchase, best-effort.
func sendPurchaseReceipt(providerOrderID string) {
	db := database.GetDB()
	purchase, err := payment.NewRepository(db).GetPurchaseByProviderOrderID(providerOrderID)
	if err != nil {
		log.Warnf("[Purchase] receipt lookup failed for order %s: %v", providerOrderID, err)
		return
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(purchase.UserID)
	if err != nil {
		log.Warnf("[Purchase] receipt user lookup failed for purchase %s: %v", purchase.ID, err)
		return
	}
	if err := mail.SendPurchaseReceipt(user.Email, purchase); err != nil {
		log.Warnf("[Purchase] receipt mail failed for purchase %s: %v", purchase.ID, err)
	}
}
