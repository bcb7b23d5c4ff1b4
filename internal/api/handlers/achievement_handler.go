package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/internal/api/presenters"
	"github.com/pocketmint/backend/pkg/achievement"
)

type (
	AchievementHandler interface {
		GetAchievements(c *fiber.Ctx) error
		GetUserProgress(c *fiber.Ctx) error
	}

	achievementHandler struct {
		achievementService achievement.AchievementService
	}
)

func NewAchievementHandler(achievementService achievement.AchievementService) AchievementHandler {
	return &achievementHandler{
		achievementService: achievementService,
	}
}

func (h *achievementHandler) GetAchievements(c *fiber.Ctx) error {
	achievements, err := h.achievementService.GetAchievements(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetAchievements, err)
	}

	return presenters.SuccessResponse(c, achievements, fiber.StatusOK, domain.MessageSuccessGetAchievements)
}

func (h *achievementHandler) GetUserProgress(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetProgress, domain.ErrParseUUID)
	}

	progress, err := h.achievementService.GetUserProgress(c.Context(), userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetProgress, err)
	}

	return presenters.SuccessResponse(c, progress, fiber.StatusOK, domain.MessageSuccessGetProgress)
}
