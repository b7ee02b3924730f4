package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MarketLensHQ/MarketLens/app/controllers"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/constants"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	admin := app.Group(constants.AdminRoute, middleware.RequireAdmin)

	admin.Post("/wallets/:userID/adjust", controllers.HandleAdminWalletAdjust)
	admin.Get("/wallets/:userID/ledger", controllers.HandleAdminWalletLedger)
}
