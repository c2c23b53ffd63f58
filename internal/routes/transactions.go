package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/balance-api/balance_api/internal/transaction"
)

// RegisterTransactionRoutes wires transaction lifecycle endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *transaction.Handler) {
	r.Post("/transactions", h.Create)
	r.Get("/transactions/:transactionId", h.Get)
	r.Patch("/transactions/:transactionId/confirm", h.Confirm)
	r.Patch("/transactions/:transactionId/cancel", h.Cancel)
}
