package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/internal/api/presenters"
	"github.com/pocketmint/backend/pkg/ledger"
)

type (
	WalletHandler interface {
		GetWallet(c *fiber.Ctx) error
		CreateTransaction(c *fiber.Ctx) error
		GetTransactionHistory(c *fiber.Ctx) error
	}

	walletHandler struct {
		ledgerService ledger.LedgerService
		validator     *validator.Validate
	}
)

func NewWalletHandler(ledgerService ledger.LedgerService, validator *validator.Validate) WalletHandler {
	return &walletHandler{
		ledgerService: ledgerService,
		validator:     validator,
	}
}

func (h *walletHandler) GetWallet(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetWallet, domain.ErrParseUUID)
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetWallet, err)
	}

	return presenters.SuccessResponse(c, wallet, fiber.StatusOK, domain.MessageSuccessGetWallet)
}

// CreateTransaction is the admin entry for grants and adjustments. Spends and
// purchases only ever happen through the reward and coin pack flows.
func (h *walletHandler) CreateTransaction(c *fiber.Ctx) error {
	req := new(domain.CreateTransactionRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateTransaction, err)
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateTransaction, domain.ErrParseUUID)
	}

	result, err := h.ledgerService.Apply(c.Context(), ledger.ApplyParams{
		UserID:      userID,
		Amount:      req.Amount,
		Type:        entities.TransactionType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		return presenters.ErrorResponse(c, statusForLedgerError(err), domain.MessageFailedCreateTransaction, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"transaction_id": result.TransactionID,
		"balance":        result.Balance,
	}, fiber.StatusOK, domain.MessageSuccessCreateTransaction)
}

func (h *walletHandler) GetTransactionHistory(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetWalletHistory, domain.ErrParseUUID)
	}

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	transactions, count, err := h.ledgerService.GetTransactionHistory(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetWalletHistory, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"transactions": transactions,
		"pagination":   domain.NewPagination(page, limit, count),
	}, fiber.StatusOK, domain.MessageSuccessGetWalletHistory)
}

func statusForLedgerError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrWalletNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrWalletFrozen):
		return fiber.StatusLocked
	default:
		return fiber.StatusBadRequest
	}
}
