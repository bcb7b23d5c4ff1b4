package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/internal/api/presenters"
	"github.com/pocketmint/backend/pkg/coinpack"
)

type (
	CoinPackHandler interface {
		GetPacks(c *fiber.Ctx) error
		InitiatePurchase(c *fiber.Ctx) error
		CancelPurchase(c *fiber.Ctx) error
		PaymentWebhook(c *fiber.Ctx) error
	}

	coinPackHandler struct {
		coinPackService coinpack.CoinPackService
		validator       *validator.Validate
	}
)

func NewCoinPackHandler(coinPackService coinpack.CoinPackService, validator *validator.Validate) CoinPackHandler {
	return &coinPackHandler{
		coinPackService: coinPackService,
		validator:       validator,
	}
}

func (h *coinPackHandler) GetPacks(c *fiber.Ctx) error {
	packs, err := h.coinPackService.GetPacks(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetCoinPacks, err)
	}

	return presenters.SuccessResponse(c, packs, fiber.StatusOK, domain.MessageSuccessGetCoinPacks)
}

func (h *coinPackHandler) InitiatePurchase(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedInitiatePurchase, domain.ErrParseUUID)
	}

	packID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedInitiatePurchase, domain.ErrParseUUID)
	}

	req := new(domain.InitiateCoinPackPurchaseRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedInitiatePurchase, err)
	}

	resp, err := h.coinPackService.Initiate(c.Context(), userID, packID, req.Email)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, domain.ErrCoinPackNotFound) {
			status = fiber.StatusNotFound
		} else if errors.Is(err, domain.ErrPaymentFailed) {
			status = fiber.StatusBadGateway
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedInitiatePurchase, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessInitiatePurchase)
}

func (h *coinPackHandler) CancelPurchase(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCancelPurchase, domain.ErrParseUUID)
	}

	purchaseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCancelPurchase, domain.ErrParseUUID)
	}

	if err := h.coinPackService.Cancel(c.Context(), purchaseID, userID); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, domain.ErrCoinPackPurchaseNotFound) {
			status = fiber.StatusNotFound
		} else if errors.Is(err, domain.ErrPurchaseNotCancelable) {
			status = fiber.StatusUnprocessableEntity
		} else if errors.Is(err, domain.ErrUserNotAllowed) {
			status = fiber.StatusForbidden
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedCancelPurchase, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessCancelPurchase)
}

// PaymentWebhook receives gateway notifications. It always answers 200 for
// known-final outcomes so the gateway stops re-delivering; an invalid
// signature is rejected outright.
func (h *coinPackHandler) PaymentWebhook(c *fiber.Ctx) error {
	notification := new(domain.PaymentNotification)
	if err := c.BodyParser(notification); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.coinPackService.HandleNotification(c.Context(), *notification); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidSignature) {
			status = fiber.StatusUnauthorized
		} else if errors.Is(err, domain.ErrCoinPackPurchaseNotFound) {
			status = fiber.StatusNotFound
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedHandleNotification, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessHandleNotification)
}
