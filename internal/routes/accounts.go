package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/balance-api/balance_api/internal/account"
	"github.com/balance-api/balance_api/internal/transaction"
)

// RegisterAccountRoutes wires account administration endpoints plus the
// per-account transaction listing.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, th *transaction.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts/:accountId", h.Get)
	r.Delete("/accounts/:accountId", h.Delete)
	r.Patch("/accounts/:accountId/current-balance", h.SetCurrentBalance)
	r.Patch("/accounts/:accountId/max-balance", h.SetMaxBalance)
	r.Get("/accounts/:accountId/transactions", th.ListByAccount)
}
