package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/internal/api/presenters"
	"github.com/pocketmint/backend/pkg/leaderboard"
)

type (
	LeaderboardHandler interface {
		GetLeaderboard(c *fiber.Ctx) error
		GetAnalytics(c *fiber.Ctx) error
	}

	leaderboardHandler struct {
		leaderboardService leaderboard.LeaderboardService
	}
)

func NewLeaderboardHandler(leaderboardService leaderboard.LeaderboardService) LeaderboardHandler {
	return &leaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

func (h *leaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	period := c.Query("period", entities.PeriodAllTime)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	// Own rank is included when the caller is authenticated.
	userID := uuid.Nil
	if raw, ok := c.Locals("user_id").(string); ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			userID = parsed
		}
	}

	board, err := h.leaderboardService.GetLeaderboard(c.Context(), period, userID, page, limit)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, domain.ErrInvalidPeriod) {
			status = fiber.StatusUnprocessableEntity
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedGetLeaderboard, err)
	}

	return presenters.SuccessResponse(c, board, fiber.StatusOK, domain.MessageSuccessGetLeaderboard)
}

func (h *leaderboardHandler) GetAnalytics(c *fiber.Ctx) error {
	analytics, err := h.leaderboardService.GetAnalytics(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetAnalytics, err)
	}

	return presenters.SuccessResponse(c, analytics, fiber.StatusOK, domain.MessageSuccessGetAnalytics)
}
