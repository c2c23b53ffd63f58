package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	CurrentBalance int64 `json:"current_balance"`
	MaxBalance     int64 `json:"max_balance"`
}

type accountResponse struct {
	ID             string `json:"id"`
	CurrentBalance int64  `json:"current_balance"`
	MaxBalance     int64  `json:"max_balance"`
}

type balanceRequest struct {
	CurrentBalance int64 `json:"current_balance"`
}

type maxBalanceRequest struct {
	MaxBalance int64 `json:"max_balance"`
}

func newAccountResponse(acct Account) accountResponse {
	return accountResponse{
		ID:             acct.ID.String(),
		CurrentBalance: acct.CurrentBalance,
		MaxBalance:     acct.MaxBalance,
	}
}

// Create opens an account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Create(c.UserContext(), CreateInput{
		CurrentBalance: req.CurrentBalance,
		MaxBalance:     req.MaxBalance,
	})
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(newAccountResponse(acct))
}

// Get returns an account by identifier.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	acct, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(newAccountResponse(acct))
}

// Delete removes an account and its transactions.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "OK"})
}

// SetCurrentBalance overwrites the account balance.
func (h *Handler) SetCurrentBalance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	var req balanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.SetCurrentBalance(c.UserContext(), id, req.CurrentBalance)
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(newAccountResponse(acct))
}

// SetMaxBalance overwrites the account ceiling.
func (h *Handler) SetMaxBalance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	var req maxBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.SetMaxBalance(c.UserContext(), id, req.MaxBalance)
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(newAccountResponse(acct))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBalanceAboveMax),
		errors.Is(err, ErrNegativeBalance),
		errors.Is(err, ErrMaxBelowCurrent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
