package transaction

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler exposes transaction HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a transaction HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	AccountID      string `json:"account_id"`
	Amount         int64  `json:"amount"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type transactionResponse struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newTransactionResponse(t Transaction) transactionResponse {
	return transactionResponse{
		ID:             t.ID.String(),
		AccountID:      t.AccountID.String(),
		Amount:         t.Amount,
		Status:         string(t.Status),
		TimeoutSeconds: t.TimeoutSeconds,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// Create opens a pending transaction.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account_id")
	}

	t, err := h.service.Create(c.UserContext(), CreateInput{
		AccountID:      accountID,
		Amount:         req.Amount,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(newTransactionResponse(t))
}

// Get returns a transaction by identifier.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction id")
	}
	t, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(newTransactionResponse(t))
}

// Confirm applies a pending transaction to its account.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction id")
	}
	t, err := h.service.Confirm(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(newTransactionResponse(t))
}

// Cancel voids a pending transaction.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction id")
	}
	t, err := h.service.Cancel(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(newTransactionResponse(t))
}

// ListByAccount returns one page of an account's transactions. The offset
// query parameter is a 1-based page number.
func (h *Handler) ListByAccount(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	limit := c.QueryInt("limit", defaultPageSize)
	page := c.QueryInt("offset", 1)

	items, total, err := h.service.ListByAccount(c.UserContext(), accountID, limit, page)
	if err != nil {
		return fiber.NewError(statusForError(err), err.Error())
	}

	payload := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		payload = append(payload, newTransactionResponse(t))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transactions": payload,
		"total":        total,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrMaxBalanceExceeded),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrInvalidTimeout):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
