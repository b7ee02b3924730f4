package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/MarketLensHQ/MarketLens/app/controllers"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/constants"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// session auth
	app.Post("/register", controllers.HandleAuthRegister)
	app.Post("/login", limiter.New(limiter.Config{Max: 10}), controllers.HandleAuthLogin)
	app.Post("/logout", controllers.HandleAuthLogout)

	// PSP webhook: signature-verified in the handler, never session-gated.
	app.Post(constants.PayfrontWebhookPath, controllers.HandlePayfrontWebhook)
}
