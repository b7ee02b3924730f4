package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/middleware"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
