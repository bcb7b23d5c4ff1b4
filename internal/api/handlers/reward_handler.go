package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/internal/api/presenters"
	"github.com/pocketmint/backend/pkg/reward"
)

type (
	RewardHandler interface {
		ListItems(c *fiber.Ctx) error
		CreateItem(c *fiber.Ctx) error
		UpdateItem(c *fiber.Ctx) error
		Purchase(c *fiber.Ctx) error
		Refund(c *fiber.Ctx) error
		GetUserPurchases(c *fiber.Ctx) error
	}

	rewardHandler struct {
		rewardService reward.RewardService
		validator     *validator.Validate
	}
)

func NewRewardHandler(rewardService reward.RewardService, validator *validator.Validate) RewardHandler {
	return &rewardHandler{
		rewardService: rewardService,
		validator:     validator,
	}
}

func (h *rewardHandler) ListItems(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	items, count, err := h.rewardService.ListItems(c.Context(), c.Query("category"), page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetRewardItems, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"items":      items,
		"pagination": domain.NewPagination(page, limit, count),
	}, fiber.StatusOK, domain.MessageSuccessGetRewardItems)
}

func (h *rewardHandler) CreateItem(c *fiber.Ctx) error {
	req := new(domain.CreateRewardItemRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateRewardItem, err)
	}

	if file, err := c.FormFile("image"); err == nil {
		req.Image = file
	}

	item, err := h.rewardService.CreateItem(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateRewardItem, err)
	}

	return presenters.SuccessResponse(c, item, fiber.StatusCreated, domain.MessageSuccessCreateRewardItem)
}

func (h *rewardHandler) UpdateItem(c *fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateRewardItem, domain.ErrParseUUID)
	}

	req := new(domain.UpdateRewardItemRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateRewardItem, err)
	}

	if err := h.rewardService.UpdateItem(c.Context(), itemID, *req); err != nil {
		return presenters.ErrorResponse(c, statusForRewardError(err), domain.MessageFailedUpdateRewardItem, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessUpdateRewardItem)
}

func (h *rewardHandler) Purchase(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedPurchaseReward, domain.ErrParseUUID)
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedPurchaseReward, domain.ErrParseUUID)
	}

	purchase, err := h.rewardService.Purchase(c.Context(), userID, itemID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForRewardError(err), domain.MessageFailedPurchaseReward, err)
	}

	return presenters.SuccessResponse(c, purchase, fiber.StatusOK, domain.MessageSuccessPurchaseReward)
}

func (h *rewardHandler) Refund(c *fiber.Ctx) error {
	purchaseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRefundPurchase, domain.ErrParseUUID)
	}

	if err := h.rewardService.Refund(c.Context(), purchaseID); err != nil {
		return presenters.ErrorResponse(c, statusForRewardError(err), domain.MessageFailedRefundPurchase, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessRefundPurchase)
}

func (h *rewardHandler) GetUserPurchases(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetUserPurchases, domain.ErrParseUUID)
	}

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	purchases, count, err := h.rewardService.GetUserPurchases(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetUserPurchases, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"purchases":  purchases,
		"pagination": domain.NewPagination(page, limit, count),
	}, fiber.StatusOK, domain.MessageSuccessGetUserPurchases)
}

func statusForRewardError(err error) int {
	switch {
	case errors.Is(err, domain.ErrRewardItemNotFound), errors.Is(err, domain.ErrPurchaseNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrOutOfStock), errors.Is(err, domain.ErrRewardItemInactive):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPurchaseAlreadyRefunded), errors.Is(err, domain.ErrPurchaseNotRefundable):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientFunds):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}
