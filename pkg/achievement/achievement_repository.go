package achievement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/entities"
)

type (
	AchievementRepository interface {
		ListActiveAchievements(ctx context.Context) ([]*entities.Achievement, error)
		GetAchievementByCode(ctx context.Context, code string) (*entities.Achievement, error)
		CreateAchievement(ctx context.Context, achievement *entities.Achievement) error

		GetProgress(ctx context.Context, userID, achievementID uuid.UUID) (*entities.UserAchievementProgress, error)
		CreateProgress(ctx context.Context, progress *entities.UserAchievementProgress) error

		// Progress mutations are conditional single-row updates so concurrent
		// events never lose increments and completion fires exactly once.
		IncrementProgress(ctx context.Context, id uuid.UUID, delta int64, eventID uuid.UUID) (bool, error)
		CompleteProgress(ctx context.Context, id uuid.UUID, threshold int64) (bool, error)
		GetUserProgress(ctx context.Context, userID uuid.UUID) ([]*entities.UserAchievementProgress, error)
	}

	achievementRepository struct {
		db *gorm.DB
	}
)

func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{
		db: db,
	}
}

func (r *achievementRepository) ListActiveAchievements(ctx context.Context) ([]*entities.Achievement, error) {
	var achievements []*entities.Achievement
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("threshold ASC").
		Find(&achievements).Error; err != nil {
		return nil, err
	}
	return achievements, nil
}

func (r *achievementRepository) GetAchievementByCode(ctx context.Context, code string) (*entities.Achievement, error) {
	var achievement entities.Achievement
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&achievement).Error; err != nil {
		return nil, err
	}
	return &achievement, nil
}

func (r *achievementRepository) CreateAchievement(ctx context.Context, achievement *entities.Achievement) error {
	return r.db.WithContext(ctx).Create(achievement).Error
}

func (r *achievementRepository) GetProgress(ctx context.Context, userID, achievementID uuid.UUID) (*entities.UserAchievementProgress, error) {
	var progress entities.UserAchievementProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &progress, nil
}

func (r *achievementRepository) CreateProgress(ctx context.Context, progress *entities.UserAchievementProgress) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

// IncrementProgress adds delta to an open progress row and records the event
// that produced it. Zero rows affected means the row is already completed or
// this event was the last one counted.
func (r *achievementRepository) IncrementProgress(ctx context.Context, id uuid.UUID, delta int64, eventID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.UserAchievementProgress{}).
		Where("id = ? AND completed = false AND (last_event_id IS NULL OR last_event_id <> ?)", id, eventID).
		Updates(map[string]any{
			"progress":      gorm.Expr("progress + ?", delta),
			"last_event_id": eventID,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompleteProgress marks the row completed once its counter has reached the
// threshold. Zero rows affected means the counter is still short or another
// event completed it first.
func (r *achievementRepository) CompleteProgress(ctx context.Context, id uuid.UUID, threshold int64) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&entities.UserAchievementProgress{}).
		Where("id = ? AND completed = false AND progress >= ?", id, threshold).
		Updates(map[string]any{
			"completed":    true,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *achievementRepository) GetUserProgress(ctx context.Context, userID uuid.UUID) ([]*entities.UserAchievementProgress, error) {
	var progress []*entities.UserAchievementProgress
	if err := r.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Find(&progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}
