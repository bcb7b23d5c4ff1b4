package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetAchievements = "achievements retrieved successfully"
	MessageSuccessGetProgress     = "achievement progress retrieved successfully"

	MessageFailedGetAchievements = "failed to retrieve achievements"
	MessageFailedGetProgress     = "failed to retrieve achievement progress"

	ErrAchievementNotFound = errors.New("achievement not found")
)

type (
	AchievementResponse struct {
		ID           string `json:"id"`
		Code         string `json:"code"`
		Name         string `json:"name"`
		Description  string `json:"description"`
		Threshold    int64  `json:"threshold"`
		RewardAmount int64  `json:"reward_amount"`
	}

	AchievementProgressResponse struct {
		Achievement AchievementResponse `json:"achievement"`
		Progress    int64               `json:"progress"`
		Completed   bool                `json:"completed"`
		CompletedAt *time.Time          `json:"completed_at,omitempty"`
	}
)
