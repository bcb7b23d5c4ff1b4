package domain

import (
	"errors"
)

var (
	MessageSuccessGetLeaderboard = "leaderboard retrieved successfully"
	MessageSuccessGetAnalytics   = "analytics retrieved successfully"

	MessageFailedGetLeaderboard = "failed to retrieve leaderboard"
	MessageFailedGetAnalytics   = "failed to retrieve analytics"

	ErrInvalidPeriod = errors.New("invalid leaderboard period")
)

type (
	LeaderboardEntry struct {
		Rank   int    `json:"rank"`
		UserID string `json:"user_id"`
		Score  int64  `json:"score"`
	}

	LeaderboardResponse struct {
		Period  string             `json:"period"`
		Entries []LeaderboardEntry `json:"entries"`
		// Me is the caller's own position, also present when outside the page.
		Me *LeaderboardEntry `json:"me,omitempty"`
	}

	AnalyticsResponse struct {
		TotalEarned      int64            `json:"total_earned"`
		TotalSpent       int64            `json:"total_spent"`
		TransactionCount map[string]int64 `json:"transaction_count"`
		CategorySpend    map[string]int64 `json:"category_spend"`
	}
)
