package entities

import (
	"time"

	"github.com/google/uuid"
)

// AchievementType selects which transaction events feed an achievement's
// progress counter.
type AchievementType string

const (
	AchievementEarnTotal     AchievementType = "EarnTotal"
	AchievementSpendTotal    AchievementType = "SpendTotal"
	AchievementPurchaseCount AchievementType = "PurchaseCount"
)

type Achievement struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Code         string          `gorm:"uniqueIndex" json:"code"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Type         AchievementType `json:"type"`
	Threshold    int64           `json:"threshold"`
	RewardAmount int64           `json:"reward_amount"`
	IsActive     bool            `json:"is_active"`

	Timestamp
}

// UserAchievementProgress tracks one user's counter toward one achievement.
// Progress only ever increases; a completed row is terminal.
type UserAchievementProgress struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID        uuid.UUID  `gorm:"index:idx_user_achievement,unique" json:"user_id"`
	AchievementID uuid.UUID  `gorm:"index:idx_user_achievement,unique" json:"achievement_id"`
	Progress      int64      `json:"progress"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	// LastEventID de-duplicates re-delivered transaction events.
	LastEventID *uuid.UUID `json:"-"`

	Achievement *Achievement `gorm:"foreignKey:AchievementID"`
	Timestamp
}
