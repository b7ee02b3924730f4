package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/MarketLensHQ/MarketLens/app/controllers"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/middleware"
)

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the public v1 API surface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// RegisterHandlers installs the v1 routes. Wallet and purchase endpoints
// accept either a logged-in session or an API key; pack listing is public.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/wallet/packs", s.GetWalletPacks)

	authed := router.Group("", middleware.APIAuth())
	authed.Get("/wallet", s.GetWallet)
	authed.Get("/wallet/ledger", s.GetWalletLedger)
	authed.Post("/wallet/purchases", s.PostWalletPurchase)
	authed.Get("/wallet/purchases", s.GetWalletPurchases)
	authed.Get("/ai/authorize", s.GetAIAuthorize)
	authed.Get("/user/profile", s.GetUserProfile)
	authed.Post("/user/apikey", s.PostUserAPIKey)
	authed.Delete("/user/apikey", s.DeleteUserAPIKey)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetWallet returns the authenticated user's token balance.
func (s *APIServer) GetWallet(c *fiber.Ctx) error {
	return controllers.HandleWalletBalance(c)
}

// GetWalletLedger returns one page of the user's ledger.
func (s *APIServer) GetWalletLedger(c *fiber.Ctx) error {
	return controllers.HandleWalletLedger(c)
}

// GetWalletPacks lists purchasable token packs.
func (s *APIServer) GetWalletPacks(c *fiber.Ctx) error {
	return controllers.HandleWalletPacks(c)
}

// PostWalletPurchase opens a token pack purchase.
func (s *APIServer) PostWalletPurchase(c *fiber.Ctx) error {
	return controllers.HandleCreatePurchase(c)
}

// GetWalletPurchases lists the user's purchases.
func (s *APIServer) GetWalletPurchases(c *fiber.Ctx) error {
	return controllers.HandleListPurchases(c)
}

// GetAIAuthorize runs the entitlement preflight for a metered AI feature.
func (s *APIServer) GetAIAuthorize(c *fiber.Ctx) error {
	return controllers.HandleAIAuthorize(c)
}

// GetUserProfile returns account information for the authenticated user.
func (s *APIServer) GetUserProfile(c *fiber.Ctx) error {
	return controllers.HandleUserProfile(c)
}

// PostUserAPIKey issues a fresh API key.
func (s *APIServer) PostUserAPIKey(c *fiber.Ctx) error {
	return controllers.HandleUserAPIKeyIssue(c)
}

// DeleteUserAPIKey revokes the current API key.
func (s *APIServer) DeleteUserAPIKey(c *fiber.Ctx) error {
	return controllers.HandleUserAPIKeyRevoke(c)
}
