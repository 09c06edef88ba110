package routes

import (
	"github.com/gofiber/fiber/v2"

	"neuropay/internal/handlers"
)

func Setup(
	app *fiber.App,
	paymentHandler *handlers.PaymentHandler,
	healthHandler *handlers.HealthHandler,
) {
	// Provider callback. GET with query parameters, per the Robokassa
	// result-URL contract. Never rate-limited: retries are how the provider
	// guarantees delivery.
	app.Get("/result", paymentHandler.Result)

	// Browser redirects after checkout.
	app.Get("/success", paymentHandler.Success)
	app.Get("/fail", paymentHandler.Fail)

	// Liveness.
	app.Get("/test", paymentHandler.Test)
	app.Get("/health", healthHandler.Check)
}
