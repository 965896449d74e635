package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/schoolpulse/comms/internal/auth"
	"github.com/schoolpulse/comms/internal/handlers"
	"github.com/schoolpulse/comms/internal/metrics"
	"github.com/schoolpulse/comms/internal/middleware"
	"github.com/schoolpulse/comms/internal/ws"
)

// NewServer wires the fiber app: REST surface under /api, websocket
// endpoints under /ws, health and metrics at the root.
func NewServer(rest *handlers.RestHandler, gateway *ws.Gateway, verifier *auth.Verifier) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	wsGroup := app.Group("/ws", gateway.Upgrade)
	wsGroup.Get("/chat/:conversation_id", gateway.Chat())
	wsGroup.Get("/notifications", gateway.Notifications())

	api := app.Group("/api", middleware.JWTAuth(verifier))
	api.Get("/conversations", rest.ListConversations)
	api.Get("/conversations/:id/messages", rest.ListMessages)
	api.Post("/conversations/:id/read", rest.MarkRead)
	api.Post("/messages", rest.SendMessage)
	api.Get("/unread-count", rest.UnreadCount)
	api.Post("/broadcasts", rest.Broadcast)
	api.Get("/notifications", rest.ListNotifications)
	api.Get("/presence/:user_id", rest.Presence)

	return app
}
