package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	PeriodAllTime = "all_time"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// LeaderboardScore is a derived running score per user and period. It is
// rebuilt from the transaction log on drift and is never a source of truth.
type LeaderboardScore struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID `gorm:"index:idx_score_period,unique" json:"user_id"`
	Period    string    `gorm:"index:idx_score_period,unique" json:"period"`
	PeriodKey string    `gorm:"index:idx_score_period,unique" json:"period_key"`
	Score     int64     `json:"score"`
	// AchievedAt is when the score last increased; earlier achievers rank
	// first on ties.
	AchievedAt time.Time `json:"achieved_at"`

	Timestamp
}

// AnalyticsCounter is one running aggregate (total earned, spend per
// category, transaction count per type) updated on every committed
// transaction.
type AnalyticsCounter struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Metric    string    `gorm:"index:idx_metric_period,unique" json:"metric"`
	PeriodKey string    `gorm:"index:idx_metric_period,unique" json:"period_key"`
	Value     int64     `json:"value"`

	Timestamp
}
